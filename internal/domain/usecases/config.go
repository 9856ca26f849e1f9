package usecases

import "github.com/ingestgraph/corpus/internal/domain/corpuserr"

// Config is the process-wide configuration block described in spec.md
// §4.5. A subset is persisted per-database (ports.ConfigStore) and
// re-applied over these defaults on database open.
type Config struct {
	DefaultStoragePath     string
	DefaultOCRMode         string // fast | balanced | accurate
	MaxConcurrent          int    // [1,10]
	EmbeddingBatchSize     int    // [1,1024]
	EmbeddingDevice        string
	ChunkSize              int // [100,10000]
	ChunkOverlapPercent    int // [0,50]
	MaxChunkSize           int // [1000,50000]
	AutoClusterEnabled     bool
	AutoClusterThreshold   int
	AutoClusterAlgorithm   string
	ImageOptimization      ImageOptimization
}

// ImageOptimization bounds extracted-image size before storage.
type ImageOptimization struct {
	MaxWidthPx       int
	MaxHeightPx      int
	MinConfidence    float64
	MaxBytesPerImage int
}

// DefaultConfig returns the process defaults spec.md §4.5 lists.
func DefaultConfig() Config {
	return Config{
		DefaultStoragePath:   "./data",
		DefaultOCRMode:       "balanced",
		MaxConcurrent:        3,
		EmbeddingBatchSize:   32,
		EmbeddingDevice:      "auto",
		ChunkSize:            1000,
		ChunkOverlapPercent:  15,
		MaxChunkSize:         4000,
		AutoClusterEnabled:   false,
		AutoClusterThreshold: 50,
		AutoClusterAlgorithm: "hdbscan",
		ImageOptimization: ImageOptimization{
			MaxWidthPx:       2048,
			MaxHeightPx:      2048,
			MinConfidence:    0.0,
			MaxBytesPerImage: 8 << 20,
		},
	}
}

// Validate rejects config values outside the ranges spec.md §4.5 defines.
// Returns the first violation found, wrapped as a VALIDATION_ERROR.
func (c Config) Validate() *corpuserr.Error {
	switch {
	case c.MaxConcurrent < 1 || c.MaxConcurrent > 10:
		return corpuserr.Validationf("max_concurrent must be in [1,10], got %d", c.MaxConcurrent)
	case c.EmbeddingBatchSize < 1 || c.EmbeddingBatchSize > 1024:
		return corpuserr.Validationf("embedding_batch_size must be in [1,1024], got %d", c.EmbeddingBatchSize)
	case c.ChunkSize < 100 || c.ChunkSize > 10000:
		return corpuserr.Validationf("chunk_size must be in [100,10000], got %d", c.ChunkSize)
	case c.ChunkOverlapPercent < 0 || c.ChunkOverlapPercent > 50:
		return corpuserr.Validationf("chunk_overlap_percent must be in [0,50], got %d", c.ChunkOverlapPercent)
	case c.MaxChunkSize < 1000 || c.MaxChunkSize > 50000:
		return corpuserr.Validationf("max_chunk_size must be in [1000,50000], got %d", c.MaxChunkSize)
	case c.DefaultOCRMode != "fast" && c.DefaultOCRMode != "balanced" && c.DefaultOCRMode != "accurate":
		return corpuserr.Validationf("default_ocr_mode must be one of fast|balanced|accurate, got %q", c.DefaultOCRMode)
	}
	return nil
}

// ApplyOverrides merges a persisted/partial config map over a base config,
// recognizing only the keys spec.md §4.5 names. Unknown keys are ignored
// (forward-compatible with future config additions, same as the database's
// own config_json re-application on open).
func (c Config) ApplyOverrides(overrides map[string]any) Config {
	out := c
	if v, ok := overrides["default_storage_path"].(string); ok {
		out.DefaultStoragePath = v
	}
	if v, ok := overrides["default_ocr_mode"].(string); ok {
		out.DefaultOCRMode = v
	}
	if v, ok := asInt(overrides["max_concurrent"]); ok {
		out.MaxConcurrent = v
	}
	if v, ok := asInt(overrides["embedding_batch_size"]); ok {
		out.EmbeddingBatchSize = v
	}
	if v, ok := overrides["embedding_device"].(string); ok {
		out.EmbeddingDevice = v
	}
	if v, ok := asInt(overrides["chunk_size"]); ok {
		out.ChunkSize = v
	}
	if v, ok := asInt(overrides["chunk_overlap_percent"]); ok {
		out.ChunkOverlapPercent = v
	}
	if v, ok := asInt(overrides["max_chunk_size"]); ok {
		out.MaxChunkSize = v
	}
	if v, ok := overrides["auto_cluster_enabled"].(bool); ok {
		out.AutoClusterEnabled = v
	}
	if v, ok := asInt(overrides["auto_cluster_threshold"]); ok {
		out.AutoClusterThreshold = v
	}
	if v, ok := overrides["auto_cluster_algorithm"].(string); ok {
		out.AutoClusterAlgorithm = v
	}
	return out
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
