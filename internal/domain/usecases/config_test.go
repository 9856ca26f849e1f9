package usecases

import "testing"

func TestDefaultConfig_Validates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestConfig_ValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		mut  func(c Config) Config
	}{
		{"max_concurrent too low", func(c Config) Config { c.MaxConcurrent = 0; return c }},
		{"max_concurrent too high", func(c Config) Config { c.MaxConcurrent = 11; return c }},
		{"embedding_batch_size too high", func(c Config) Config { c.EmbeddingBatchSize = 2000; return c }},
		{"chunk_size too low", func(c Config) Config { c.ChunkSize = 10; return c }},
		{"chunk_overlap_percent too high", func(c Config) Config { c.ChunkOverlapPercent = 90; return c }},
		{"max_chunk_size too low", func(c Config) Config { c.MaxChunkSize = 1; return c }},
		{"bad ocr mode", func(c Config) Config { c.DefaultOCRMode = "turbo"; return c }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.mut(DefaultConfig())
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestConfig_ApplyOverrides(t *testing.T) {
	base := DefaultConfig()
	overrides := map[string]any{
		"default_ocr_mode":       "accurate",
		"max_concurrent":         float64(5), // JSON numbers decode as float64
		"embedding_batch_size":   64,
		"auto_cluster_enabled":   true,
		"auto_cluster_threshold": float64(10),
		"unknown_future_key":     "ignored",
	}
	got := base.ApplyOverrides(overrides)

	if got.DefaultOCRMode != "accurate" {
		t.Errorf("expected default_ocr_mode=accurate, got %q", got.DefaultOCRMode)
	}
	if got.MaxConcurrent != 5 {
		t.Errorf("expected max_concurrent=5, got %d", got.MaxConcurrent)
	}
	if got.EmbeddingBatchSize != 64 {
		t.Errorf("expected embedding_batch_size=64, got %d", got.EmbeddingBatchSize)
	}
	if !got.AutoClusterEnabled {
		t.Errorf("expected auto_cluster_enabled=true")
	}
	if got.AutoClusterThreshold != 10 {
		t.Errorf("expected auto_cluster_threshold=10, got %d", got.AutoClusterThreshold)
	}
	// Untouched fields must survive unchanged.
	if got.ChunkSize != base.ChunkSize {
		t.Errorf("expected chunk_size to stay at default %d, got %d", base.ChunkSize, got.ChunkSize)
	}
}

func TestConfig_ApplyOverrides_IgnoresWrongTypes(t *testing.T) {
	base := DefaultConfig()
	got := base.ApplyOverrides(map[string]any{
		"max_concurrent":   "not-a-number",
		"default_ocr_mode": 42,
	})
	if got.MaxConcurrent != base.MaxConcurrent {
		t.Errorf("expected max_concurrent to stay at default when given a wrong type, got %d", got.MaxConcurrent)
	}
	if got.DefaultOCRMode != base.DefaultOCRMode {
		t.Errorf("expected default_ocr_mode to stay at default when given a wrong type, got %q", got.DefaultOCRMode)
	}
}
