// Package ocr provides the OCR-service adapter. The OCR service itself is
// an external collaborator (spec.md §1 "Out of scope"): this adapter only
// translates its REST contract into ports.OCRClient, it implements no OCR
// logic of its own.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
	"github.com/ingestgraph/corpus/internal/domain/entities"
	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// Client implements ports.OCRClient against an HTTP OCR service. The API
// key is read once at construction from OCR_API_KEY (spec.md §5
// "Environment": credentials are the only env vars the core reads, and
// their absence fails calls fast rather than silently degrading).
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a Client pointed at baseURL, reading OCR_API_KEY from
// the environment.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  os.Getenv("OCR_API_KEY"),
		client:  &http.Client{Timeout: 120 * time.Second},
		log:     log,
	}
}

type ocrRequest struct {
	DocumentID string `json:"document_id"`
	FilePath   string `json:"file_path"`
	Mode       string `json:"mode"`
}

type ocrImage struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
	Page     int    `json:"page"`
}

type ocrResponseBody struct {
	Text           string                `json:"text"`
	PageOffsets    []int                 `json:"page_offsets"`
	BlockTree      []entities.Block      `json:"block_tree"`
	Images         []ocrImage            `json:"images"`
	ExtractionJSON map[string]any        `json:"extraction_json"`
	Metadata       ports.DocumentMetadata `json:"metadata"`
	Mode           string                `json:"mode"`
}

// Run sends one document through the OCR service.
func (c *Client) Run(ctx context.Context, req ports.OCRRequest) (ports.OCRResponse, error) {
	if c.apiKey == "" {
		return ports.OCRResponse{}, corpuserr.OCR(fmt.Errorf("OCR_API_KEY is not set"))
	}

	body, err := json.Marshal(ocrRequest{DocumentID: req.DocumentID, FilePath: req.FilePath, Mode: req.Mode})
	if err != nil {
		return ports.OCRResponse{}, corpuserr.OCR(fmt.Errorf("marshaling request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/ocr", bytes.NewReader(body))
	if err != nil {
		return ports.OCRResponse{}, corpuserr.OCR(fmt.Errorf("creating request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return ports.OCRResponse{}, corpuserr.OCR(fmt.Errorf("calling OCR service: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.OCRResponse{}, corpuserr.OCR(fmt.Errorf("OCR service returned status %d", resp.StatusCode))
	}

	var decoded ocrResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.OCRResponse{}, corpuserr.OCR(fmt.Errorf("decoding response: %w", err))
	}

	images := make([]ports.OCRImage, len(decoded.Images))
	for i, img := range decoded.Images {
		images[i] = ports.OCRImage{Filename: img.Filename, Data: img.Data, Page: img.Page}
	}

	c.log.Debug().Str("document_id", req.DocumentID).Int("pages", len(decoded.PageOffsets)).
		Int("images", len(images)).Msg("ocr completed")

	return ports.OCRResponse{
		Text:           decoded.Text,
		PageOffsets:    decoded.PageOffsets,
		BlockTree:      decoded.BlockTree,
		Images:         images,
		ExtractionJSON: decoded.ExtractionJSON,
		Metadata:       decoded.Metadata,
		Mode:           decoded.Mode,
	}, nil
}
