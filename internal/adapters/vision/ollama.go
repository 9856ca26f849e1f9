// Package vision provides the vision-model adapter used to describe
// extracted images (spec.md §4.3 step 7).
// Clean Architecture: this is an adapter implementing ports.VisionClient;
// it knows about Ollama's multimodal generate API, the domain layer does
// not.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

const visionPrompt = `Describe this image in one or two sentences, then classify it. ` +
	`Respond with JSON only: {"description": string, "image_type": "figure"|"chart"|"photo"|"diagram"|"table"|"other", ` +
	`"confidence": number between 0 and 1, "analysis": object with any additional structured observations}.`

// OllamaAdapter implements ports.VisionClient against an Ollama-compatible
// multimodal generate endpoint.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
	log     zerolog.Logger
}

// NewOllamaAdapter creates an adapter pointed at baseURL using model (a
// vision-capable model such as llava or bakllava).
func NewOllamaAdapter(baseURL, model string, log zerolog.Logger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llava"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log,
	}
}

func (a *OllamaAdapter) ModelName() string { return a.model }

type ollamaVisionRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
	Format string   `json:"format"`
}

type ollamaVisionResponse struct {
	Response string `json:"response"`
}

type visionPayload struct {
	Description string         `json:"description"`
	ImageType   string         `json:"image_type"`
	Confidence  float64        `json:"confidence"`
	Analysis    map[string]any `json:"analysis"`
}

// Describe sends one image plus surrounding OCR context to the vision
// model and parses its structured JSON reply. A per-image failure here
// never fails the owning document (pipeline.go step 7 isolates it) — it
// only ever prevents that one image from getting a VLM_DESCRIPTION row.
func (a *OllamaAdapter) Describe(ctx context.Context, req ports.VisionRequest) (ports.VisionResponse, error) {
	prompt := visionPrompt
	if req.ContextText != "" {
		prompt = visionPrompt + "\n\nSurrounding text: " + req.ContextText
	}

	body, err := json.Marshal(ollamaVisionRequest{
		Model:  a.model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(req.ImageData)},
		Stream: false,
		Format: "json",
	})
	if err != nil {
		return ports.VisionResponse{}, corpuserr.VLM(fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return ports.VisionResponse{}, corpuserr.VLM(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return ports.VisionResponse{}, corpuserr.VLM(fmt.Errorf("calling vision service: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.VisionResponse{}, corpuserr.VLM(fmt.Errorf("vision service returned status %d", resp.StatusCode))
	}

	var decoded ollamaVisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.VisionResponse{}, corpuserr.VLM(fmt.Errorf("decoding response: %w", err))
	}

	var payload visionPayload
	if err := json.Unmarshal([]byte(decoded.Response), &payload); err != nil {
		a.log.Warn().Err(err).Msg("vision model did not return valid JSON, falling back to raw text")
		return ports.VisionResponse{Description: decoded.Response, ImageType: "other", Confidence: 0}, nil
	}

	return ports.VisionResponse{
		Description: payload.Description,
		Analysis:    payload.Analysis,
		ImageType:   payload.ImageType,
		Confidence:  payload.Confidence,
	}, nil
}
