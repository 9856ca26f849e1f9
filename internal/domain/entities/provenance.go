// Package entities contains the core domain entities of the provenance
// corpus: the provenance DAG node and its typed companion rows. These are
// pure domain objects with no knowledge of storage, transport, or external
// services.
package entities

import "time"

// ProvenanceType is the type of artifact a provenance record describes.
type ProvenanceType string

const (
	TypeDocument      ProvenanceType = "DOCUMENT"
	TypeOCRResult     ProvenanceType = "OCR_RESULT"
	TypeChunk         ProvenanceType = "CHUNK"
	TypeEmbedding     ProvenanceType = "EMBEDDING"
	TypeImage         ProvenanceType = "IMAGE"
	TypeVLMDescription ProvenanceType = "VLM_DESCRIPTION"
	TypeExtraction    ProvenanceType = "EXTRACTION"
	TypeClustering    ProvenanceType = "CLUSTERING"
	TypeComparison    ProvenanceType = "COMPARISON"
	TypeFormFill      ProvenanceType = "FORM_FILL"
)

// Provenance is an immutable node in the typed, content-addressed ancestry
// DAG. Every derived artifact in the corpus has exactly one of these.
type Provenance struct {
	ID                     string
	Type                   ProvenanceType
	SourceType             string
	Processor              string
	ProcessorVersion       string
	ProcessingParams       map[string]any
	ContentHash            string
	InputHash              string
	FileHash               string
	ParentID               *string
	ParentIDs              []string
	RootDocumentID         string
	ChainDepth             int
	ChainPath              []ProvenanceType
	ChainHash              string
	Location               *Location
	ProcessingDurationMS   int64
	ProcessingQualityScore *float64
	CreatedAt              time.Time
	ProcessedAt            time.Time
}

// Location is a fine-grained locator within a source or derived artifact.
type Location struct {
	Page       *int
	CharStart  *int
	CharEnd    *int
	ChunkIndex *int
	BBox       *BoundingBox
}

// BoundingBox is a pixel-space rectangle on a page image.
type BoundingBox struct {
	X0, Y0, X1, Y1 float64
}

// IsRoot reports whether this provenance record is a DOCUMENT root.
func (p *Provenance) IsRoot() bool {
	return p.Type == TypeDocument && p.ParentID == nil
}
