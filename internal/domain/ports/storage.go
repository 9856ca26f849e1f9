package ports

import (
	"context"
	"time"

	"github.com/ingestgraph/corpus/internal/domain/entities"
)

// Store is the full storage facade a database connection must provide.
// It is deliberately segregated into narrower embedded interfaces so
// usecases can depend on only the slice they need (Interface Segregation,
// the same discipline the teacher's ports.go documents).
type Store interface {
	ProvenanceStore
	DocumentStore
	ChunkStore
	EmbeddingStore
	ImageStore
	ExtractionStore
	OCRResultStore
	ClusterStore
	ComparisonStore
	VectorIndex
	FTSIndex
	ConfigStore

	// Close releases the connection, flushing WAL (spec.md §5 "Process
	// exit").
	Close() error
	// SchemaVersion reports the schema version of the open database.
	SchemaVersion() int
}

// ProvenanceStore persists and queries provenance records (spec.md §4.1).
type ProvenanceStore interface {
	InsertProvenance(ctx context.Context, p *entities.Provenance) error
	GetProvenance(ctx context.Context, id string) (*entities.Provenance, error)
	GetProvenanceBatch(ctx context.Context, ids []string) (map[string]*entities.Provenance, error)
	ListChildren(ctx context.Context, parentID string) ([]*entities.Provenance, error)
	ListNullChainHash(ctx context.Context) ([]*entities.Provenance, error)
	UpdateChainHash(ctx context.Context, id string, chainHash string) error
	DeleteProvenanceForDocument(ctx context.Context, rootDocumentID string) (int, error)
}

// DocumentStore manages document rows and the pipeline state machine.
type DocumentStore interface {
	InsertDocument(ctx context.Context, d *entities.Document) error
	GetDocumentByID(ctx context.Context, id string) (*entities.Document, error)
	GetDocumentByPath(ctx context.Context, path string) (*entities.Document, error)
	GetDocumentByHash(ctx context.Context, hash string) (*entities.Document, error)
	ClaimPending(ctx context.Context, max int) ([]*entities.Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status entities.DocumentStatus, errMsg string) error
	UpdateDocumentMetadata(ctx context.Context, id string, title, author, subject string, pageCount int) error
	SetOCRCompletedAt(ctx context.Context, id string, t time.Time) error
	ResetStuckProcessing(ctx context.Context, olderThanSeconds int64) (int, error)
	DeleteDocument(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, statusFilter string, offset, limit int) ([]*entities.Document, error)
	CountComplete(ctx context.Context) (int, error)
}

// ChunkStore manages chunk rows.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []*entities.Chunk) error
	GetChunk(ctx context.Context, id string) (*entities.Chunk, error)
	ListChunksByDocument(ctx context.Context, documentID string) ([]*entities.Chunk, error)
	TagChunks(ctx context.Context, ids []string, tag string) error
	CountChunks(ctx context.Context, documentID string) (int, error)
}

// EmbeddingStore manages embedding rows (distinct from the raw vector
// index, which stores only the float vector keyed by the same id).
type EmbeddingStore interface {
	InsertEmbedding(ctx context.Context, e *entities.Embedding) error
	GetEmbedding(ctx context.Context, id string) (*entities.Embedding, error)
	GetEmbeddingByChunk(ctx context.Context, chunkID string) (*entities.Embedding, error)
	CountEmbeddings(ctx context.Context, documentID string) (int, error)
}

// ImageStore manages image rows.
type ImageStore interface {
	InsertImage(ctx context.Context, img *entities.Image) error
	GetImage(ctx context.Context, id string) (*entities.Image, error)
	ListImagesByDocument(ctx context.Context, documentID string) ([]*entities.Image, error)
	ListPendingVLM(ctx context.Context, limit int) ([]*entities.Image, error)
	UpdateImageVLMStatus(ctx context.Context, id string, status entities.VLMStatus) error
	InsertVLMDescription(ctx context.Context, v *entities.VLMDescription) error
	SearchImages(ctx context.Context, f ImageSearchFilter) ([]*entities.Image, error)
	DeleteImage(ctx context.Context, id string) error
}

// ImageSearchFilter is the keyword filter for image search (spec.md §4.4).
type ImageSearchFilter struct {
	ImageType      string
	BlockType      string
	MinConfidence  float64
	Page           *int
	DescriptionLike string
	Offset, Limit  int
}

// ExtractionStore manages structured-extraction rows.
type ExtractionStore interface {
	InsertExtraction(ctx context.Context, e *entities.Extraction) error
	GetExtraction(ctx context.Context, id string) (*entities.Extraction, error)
	ListExtractionsByDocument(ctx context.Context, documentID string) ([]*entities.Extraction, error)
}

// OCRResultStore manages the OCR_RESULT companion rows.
type OCRResultStore interface {
	InsertOCRResult(ctx context.Context, r *entities.OCRResult) error
	GetOCRResultByDocument(ctx context.Context, documentID string) (*entities.OCRResult, error)
	// UpdateOCRExtras merges extras into the OCR result's extras_json and
	// replaces its step_durations_json, once both are known at the end of
	// the pipeline (spec.md §4.3 step 10).
	UpdateOCRExtras(ctx context.Context, documentID string, extras map[string]any, stepDurations map[string]int64) error
}

// ClusterStore manages clustering runs and cluster membership.
type ClusterStore interface {
	InsertClusters(ctx context.Context, clusters []*entities.Cluster) error
	InsertClusterMembers(ctx context.Context, members []*entities.ClusterMember) error
	ListClusters(ctx context.Context, runID string) ([]*entities.Cluster, error)
	LastClusterRunAt(ctx context.Context) (int64, bool, error)
	ReassignMember(ctx context.Context, documentID, newClusterID string) error
	ListClusterMembers(ctx context.Context, clusterID string) ([]*entities.ClusterMember, error)
	FindClusterMember(ctx context.Context, documentID string) (*entities.ClusterMember, error)
	DeleteCluster(ctx context.Context, clusterID string) error
}

// ComparisonStore manages document comparisons.
type ComparisonStore interface {
	InsertComparison(ctx context.Context, c *entities.Comparison) error
	GetComparison(ctx context.Context, id string) (*entities.Comparison, error)
	FindComparison(ctx context.Context, docA, docB string) (*entities.Comparison, error)
	ListComparisons(ctx context.Context, documentID string) ([]*entities.Comparison, error)
}

// VectorIndex is the fixed-dimension vector similarity index loaded as an
// extension at database open (spec.md §4.2).
type VectorIndex interface {
	UpsertVector(ctx context.Context, id string, v []float32) error
	GetVector(ctx context.Context, id string) ([]float32, bool, error)
	SearchVectors(ctx context.Context, query []float32, topK int, filter *VectorFilter) ([]ScoredID, error)
	DeleteVectors(ctx context.Context, ids []string) error
	Dimension() int
}

// VectorFilter restricts a vector search to a subset of embeddings.
type VectorFilter struct {
	DocumentIDs []string // allowed documents, empty = unrestricted
	ImageOnly   bool     // restrict to embeddings whose source is an image
	Threshold   *float64 // minimum similarity
}

// ScoredID is one hit from either the vector index or the FTS index.
type ScoredID struct {
	ID    string
	Score float64
}

// FTSIndex is the inverted full-text index over chunks/VLM
// descriptions/extractions (spec.md §4.2, §4.4).
type FTSIndex interface {
	IndexRow(ctx context.Context, row entities.FTSRow) error
	DeleteRow(ctx context.Context, discriminator entities.FTSDiscriminator, sourceID string) error
	Search(ctx context.Context, query string, discriminators []entities.FTSDiscriminator, topK int) ([]ScoredID, error)
	Rebuild(ctx context.Context, rows []entities.FTSRow) error
}

// ConfigStore persists the database-local config_json row (spec.md §6).
type ConfigStore interface {
	LoadPersistedConfig(ctx context.Context) (map[string]any, error)
	SavePersistedConfig(ctx context.Context, cfg map[string]any) error
}
