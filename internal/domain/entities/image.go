package entities

// Image is the companion row for an IMAGE provenance record: one picture,
// figure, or table-as-image extracted from a document during OCR or
// file-level extraction (spec.md §4.3 step 2).
type Image struct {
	ID             string
	ProvenanceID   string
	DocumentID     string
	FilePath       string
	ContentHash    string
	Page           int
	BlockType      string // "header", "footer", "table", "figure", "picture"
	IsHeader       bool
	IsFooter       bool
	ContextText    string
	Width          int
	Height         int
	VLMStatus      VLMStatus
}

// VLMStatus tracks whether the vision model has processed this image yet.
type VLMStatus string

const (
	VLMPending VLMStatus = "pending"
	VLMDone    VLMStatus = "done"
	VLMFailed  VLMStatus = "failed"
)

// VLMDescription is the companion row for a VLM_DESCRIPTION provenance
// record.
type VLMDescription struct {
	ID           string
	ProvenanceID string
	ImageID      string
	Description  string
	Analysis     map[string]any
	ImageType    string
	Confidence   float64
	ModelName    string
}
