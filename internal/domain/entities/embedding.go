package entities

// SourceKind identifies which of chunk/image/extraction an embedding was
// computed from. Exactly one of Embedding.ChunkID/ImageID/ExtractionID is
// non-null; SourceKind is derived from which one, never stored redundantly
// at the call site.
type SourceKind string

const (
	SourceKindChunk      SourceKind = "chunk"
	SourceKindImage      SourceKind = "image"
	SourceKindExtraction SourceKind = "extraction"
)

// Embedding is the companion row for an EMBEDDING provenance record.
type Embedding struct {
	ID            string
	ProvenanceID  string
	ChunkID       *string
	ImageID       *string
	ExtractionID  *string
	OriginalText  string
	ModelName     string
	ModelVersion  string
	TaskType      string
	InferenceMode string
	VectorID      string
}

// SourceKind derives which artifact this embedding was computed from.
func (e *Embedding) SourceKind() SourceKind {
	switch {
	case e.ChunkID != nil:
		return SourceKindChunk
	case e.ImageID != nil:
		return SourceKindImage
	default:
		return SourceKindExtraction
	}
}

// DefaultVectorDimension is the database-level embedding dimension
// (spec.md §3 invariant 8).
const DefaultVectorDimension = 768

// Vector is a fixed-dimension, L2-normalized float vector addressed by the
// same id as its embedding row.
type Vector struct {
	ID     string
	Values []float32
}
