// Package embedding provides the embedding-service adapter.
// Clean Architecture: this is an adapter implementing ports.EmbeddingClient;
// it knows about Ollama's HTTP API shape, the domain layer does not.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// OllamaAdapter implements ports.EmbeddingClient against an Ollama-compatible
// embeddings endpoint, batching sequentially (spec.md §4.3 step 6 leaves the
// batch shape to the embedding provider; Ollama's /api/embeddings endpoint
// only accepts one prompt at a time).
type OllamaAdapter struct {
	baseURL string
	model   string
	version string
	client  *http.Client
	log     zerolog.Logger
}

// NewOllamaAdapter creates an adapter pointed at baseURL using model.
// version identifies the embedding model revision for provenance
// (spec.md §4.1 processor_version); Ollama itself does not version models,
// so the caller supplies one (e.g. a pulled tag or a config value).
func NewOllamaAdapter(baseURL, model, version string, log zerolog.Logger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	if version == "" {
		version = "latest"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		version: version,
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     log,
	}
}

func (a *OllamaAdapter) ModelName() string    { return a.model }
func (a *OllamaAdapter) ModelVersion() string { return a.version }

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedBatch embeds each text in order, sequentially. Ollama has no native
// batch endpoint; a failure partway through fails the whole batch so the
// caller's per-chunk EMBEDDING provenance never ends up partially written
// for a batch that as a whole did not succeed.
func (a *OllamaAdapter) EmbedBatch(ctx context.Context, req ports.EmbedRequest) (ports.EmbedResponse, error) {
	vectors := make([][]float32, len(req.Texts))
	for i, text := range req.Texts {
		v, err := a.embedOne(ctx, text)
		if err != nil {
			return ports.EmbedResponse{}, corpuserr.Embedding(fmt.Errorf("text %d: %w", i, err))
		}
		vectors[i] = v
	}
	a.log.Debug().Int("count", len(vectors)).Str("model", a.model).Msg("embedded batch")
	return ports.EmbedResponse{Vectors: vectors}, nil
}

func (a *OllamaAdapter) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: a.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var decoded ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return decoded.Embedding, nil
}
