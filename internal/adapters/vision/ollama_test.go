package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func TestOllamaAdapter_Describe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		payload, _ := json.Marshal(map[string]any{
			"description": "a bar chart showing quarterly revenue",
			"image_type":  "chart",
			"confidence":  0.9,
			"analysis":    map[string]any{"axes": 2},
		})
		json.NewEncoder(w).Encode(map[string]any{"response": string(payload)})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "llava", zerolog.Nop())
	resp, err := adapter.Describe(context.Background(), ports.VisionRequest{ImageData: []byte{0xff, 0xd8}, ContextText: "Q3 results"})
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	if resp.ImageType != "chart" {
		t.Errorf("expected chart, got %s", resp.ImageType)
	}
	if resp.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", resp.Confidence)
	}
}

func TestOllamaAdapter_NonJSONFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "not json"})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "llava", zerolog.Nop())
	resp, err := adapter.Describe(context.Background(), ports.VisionRequest{ImageData: []byte{0x01}})
	if err != nil {
		t.Fatalf("describe should not fail on malformed JSON: %v", err)
	}
	if resp.Description != "not json" {
		t.Errorf("expected raw text fallback, got %q", resp.Description)
	}
}

func TestOllamaAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "llava", zerolog.Nop())
	_, err := adapter.Describe(context.Background(), ports.VisionRequest{ImageData: []byte{0x01}})
	if err == nil {
		t.Error("should error on 500")
	}
}
