package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPDFExtractor_SupportsFile(t *testing.T) {
	e := NewPDFExtractor("")
	if !e.SupportsFile("/tmp/a.pdf") {
		t.Error("should support .pdf")
	}
	if e.SupportsFile("/tmp/a.txt") {
		t.Error("should not support .txt")
	}
}

func TestPDFExtractor_ExtractImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"images": []map[string]any{
				{"filename": "p1_img0.png", "data": []byte{0x01, 0x02}, "page": 1},
			},
		})
	}))
	defer server.Close()

	e := NewPDFExtractor(server.URL)
	images, err := e.ExtractImages(context.Background(), "/tmp/a.pdf")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(images) != 1 || images[0].Page != 1 {
		t.Errorf("unexpected images: %+v", images)
	}
}

func TestPDFExtractor_ServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "corrupt pdf"})
	}))
	defer server.Close()

	e := NewPDFExtractor(server.URL)
	_, err := e.ExtractImages(context.Background(), "/tmp/a.pdf")
	if err == nil {
		t.Error("expected error")
	}
}
