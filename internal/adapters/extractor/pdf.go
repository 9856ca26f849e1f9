// Package extractor provides ports.FileExtractor implementations for file
// types whose embedded images OCR does not return inline (spec.md §4.3
// step 2, "never double-extract").
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// PDFExtractor implements ports.FileExtractor for PDFs by delegating to
// an external image-extraction service.
type PDFExtractor struct {
	serviceURL string
	client     *http.Client
}

// NewPDFExtractor creates a PDFExtractor pointed at serviceURL.
func NewPDFExtractor(serviceURL string) *PDFExtractor {
	if serviceURL == "" {
		serviceURL = "http://localhost:8081"
	}
	return &PDFExtractor{
		serviceURL: serviceURL,
		client:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *PDFExtractor) SupportsFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

type extractImage struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
	Page     int    `json:"page"`
}

type extractResponse struct {
	Images []extractImage `json:"images"`
	Error  string         `json:"error,omitempty"`
}

// ExtractImages asks the extraction service for every embedded image in
// the PDF at path.
func (p *PDFExtractor) ExtractImages(ctx context.Context, path string) ([]ports.OCRImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/extract-images", bytes.NewReader([]byte(path)))
	if err != nil {
		return nil, fmt.Errorf("extractor: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor: calling image extraction service: %w", err)
	}
	defer resp.Body.Close()

	var result extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("extractor: decoding response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("extractor: %s", result.Error)
	}

	images := make([]ports.OCRImage, len(result.Images))
	for i, img := range result.Images {
		images[i] = ports.OCRImage{Filename: img.Filename, Data: img.Data, Page: img.Page}
	}
	return images, nil
}
