package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func TestClient_Run(t *testing.T) {
	os.Setenv("OCR_API_KEY", "test-key")
	defer os.Unsetenv("OCR_API_KEY")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing or wrong auth header: %s", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"text":         "page one\fpage two",
			"page_offsets": []int{0, 9},
			"mode":         "balanced",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, zerolog.Nop())
	resp, err := client.Run(context.Background(), ports.OCRRequest{DocumentID: "d1", FilePath: "/tmp/a.pdf", Mode: "balanced"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if resp.Text != "page one\fpage two" {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if len(resp.PageOffsets) != 2 {
		t.Errorf("expected 2 page offsets, got %d", len(resp.PageOffsets))
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	os.Unsetenv("OCR_API_KEY")
	client := NewClient("http://localhost:1", zerolog.Nop())
	_, err := client.Run(context.Background(), ports.OCRRequest{DocumentID: "d1", FilePath: "/tmp/a.pdf"})
	if err == nil {
		t.Error("expected error for missing API key")
	}
}
