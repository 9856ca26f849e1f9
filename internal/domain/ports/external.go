// Package ports defines the interfaces usecases depend on. Clean
// Architecture discipline carried from the teacher: usecases depend on
// these abstractions, adapters implement them, and the dependency always
// points inward.
package ports

import (
	"context"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

// OCRClient delegates OCR for one document (spec.md §4.3 step 1).
type OCRClient interface {
	Run(ctx context.Context, req OCRRequest) (OCRResponse, error)
}

// OCRRequest is the input to an OCR call.
type OCRRequest struct {
	DocumentID string
	FilePath   string
	Mode       string // fast | balanced | accurate
}

// OCRResponse is everything OCR may return; most fields are optional per
// spec.md §4.3 step 1.
type OCRResponse struct {
	Text          string
	PageOffsets   []int
	BlockTree     []entities.Block
	Images        []OCRImage
	ExtractionJSON map[string]any
	Metadata      DocumentMetadata
	Mode          string
}

// OCRImage is one pre-extracted image blob returned inline by the OCR
// service.
type OCRImage struct {
	Filename string
	Data     []byte
	Page     int
}

// DocumentMetadata is document-level metadata optionally detected by OCR.
type DocumentMetadata struct {
	Title   string
	Author  string
	Subject string
}

// EmbeddingClient embeds text in batches (spec.md §4.3 step 6).
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, req EmbedRequest) (EmbedResponse, error)
	ModelName() string
	ModelVersion() string
}

// EmbedRequest is a batch embedding call.
type EmbedRequest struct {
	Texts    []string
	TaskType string // "search_document" | "search_query"
	Mode     string
}

// EmbedResponse carries one vector per input text, in order.
type EmbedResponse struct {
	Vectors [][]float32
}

// VisionClient describes an image and returns structured analysis
// (spec.md §4.3 step 7).
type VisionClient interface {
	Describe(ctx context.Context, req VisionRequest) (VisionResponse, error)
	ModelName() string
}

// VisionRequest is one image to analyze, with surrounding OCR context.
type VisionRequest struct {
	ImageData   []byte
	ContextText string
}

// VisionResponse is the vision model's structured output.
type VisionResponse struct {
	Description string
	Analysis    map[string]any
	ImageType   string
	Confidence  float64
}

// FileExtractor runs a file-level extraction when OCR returned no inline
// images but the source file type supports direct image extraction
// (spec.md §4.3 step 2, "never double-extract").
type FileExtractor interface {
	SupportsFile(path string) bool
	ExtractImages(ctx context.Context, path string) ([]OCRImage, error)
}
