package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

func TestOllamaAdapter_EmbedBatch(t *testing.T) {
	callCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		callCount++
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{float32(callCount) * 0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model", "v1", zerolog.Nop())
	resp, err := adapter.EmbedBatch(context.Background(), ports.EmbedRequest{Texts: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("embed batch failed: %v", err)
	}
	if len(resp.Vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(resp.Vectors))
	}
	if len(resp.Vectors[0]) != 3 {
		t.Errorf("expected 3 dims, got %d", len(resp.Vectors[0]))
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestOllamaAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test", "v1", zerolog.Nop())
	_, err := adapter.EmbedBatch(context.Background(), ports.EmbedRequest{Texts: []string{"x"}})
	if err == nil {
		t.Error("should error on 500")
	}
}

func TestOllamaAdapter_DefaultValues(t *testing.T) {
	adapter := NewOllamaAdapter("", "", "", zerolog.Nop())
	if adapter.ModelName() != "nomic-embed-text" {
		t.Error("should default to nomic-embed-text")
	}
	if adapter.baseURL != "http://localhost:11434" {
		t.Error("should default to localhost")
	}
}
