package entities

import "time"

// DocumentStatus is the document's position in the ingestion state machine
// (spec.md §4.3): pending -> processing -> complete|failed.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusComplete   DocumentStatus = "complete"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the root of a derived-artifact sub-DAG: a single ingested
// source file, identified by content (FileHash) and located by at least
// one FilePath.
type Document struct {
	ID              string
	ProvenanceID    string
	FileHash        string
	FilePath        string
	Status          DocumentStatus
	PageCount       int
	Title           string
	Author          string
	Subject         string
	OCRCompletedAt  *time.Time
	ErrorMessage    string
	CreatedAt       time.Time
	ModifiedAt      time.Time
}

// StructuralFingerprint is a compact description of a document's shape,
// computed during metadata enrichment (spec.md §4.3 step 5).
type StructuralFingerprint struct {
	PageCount              int
	ChunkCount             int
	TableCount             int
	FigureCount            int
	HeadingDepthHistogram  map[int]int
	AverageChunkSize       float64
	AtomicRatio            float64
	ContentTypeDistribution map[string]int
}

// PostProcessingError is a non-fatal warning surfaced from steps 4-5 of
// the pipeline (header/footer tagging, metadata enrichment).
type PostProcessingError struct {
	Step    string
	Message string
}
