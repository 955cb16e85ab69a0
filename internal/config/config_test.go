package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ChunkSize != 800 || cfg.ChunkOverlap != 100 {
		t.Errorf("chunking defaults = %d/%d, want 800/100", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want 5", cfg.MaxResults)
	}
	if cfg.MaxHistoryExchanges != 2 {
		t.Errorf("MaxHistoryExchanges = %d, want 2", cfg.MaxHistoryExchanges)
	}
	if cfg.ModelName != DefaultModelName {
		t.Errorf("ModelName = %q", cfg.ModelName)
	}
	if cfg.EmbeddingDimensions != DefaultEmbeddingDimensions {
		t.Errorf("EmbeddingDimensions = %d", cfg.EmbeddingDimensions)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coursechat.yaml")
	content := "chunk_size: 400\nchunk_overlap: 50\nmax_results: 3\nhttp_addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ChunkSize != 400 || cfg.ChunkOverlap != 50 {
		t.Errorf("chunking = %d/%d, want 400/50", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.MaxResults != 3 {
		t.Errorf("MaxResults = %d, want 3", cfg.MaxResults)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	// Unset keys keep defaults.
	if cfg.ModelName != DefaultModelName {
		t.Errorf("ModelName = %q", cfg.ModelName)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() accepted a missing explicit config file")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("COURSECHAT_CHUNK_SIZE", "500")
	t.Setenv("COURSECHAT_MODEL_NAME", "gemini-2.5-pro")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ChunkSize != 500 {
		t.Errorf("ChunkSize = %d, want env override 500", cfg.ChunkSize)
	}
	if cfg.ModelName != "gemini-2.5-pro" {
		t.Errorf("ModelName = %q", cfg.ModelName)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			ModelName:           DefaultModelName,
			EmbedderModel:       DefaultEmbedderModel,
			EmbeddingDimensions: 768,
			ChunkSize:           800,
			ChunkOverlap:        100,
			MaxResults:          5,
			MaxHistoryExchanges: 2,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"overlap equals chunk size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, ErrInvalidChunking},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, ErrInvalidMaxResults},
		{"zero history", func(c *Config) { c.MaxHistoryExchanges = 0 }, ErrInvalidHistory},
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidModelName},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }, ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestFullModelName(t *testing.T) {
	c := Config{ModelName: "gemini-2.5-flash"}
	if got := c.FullModelName(); got != "googleai/gemini-2.5-flash" {
		t.Errorf("FullModelName() = %q", got)
	}
	c.ModelName = "ollama/llama3.3"
	if got := c.FullModelName(); got != "ollama/llama3.3" {
		t.Errorf("qualified name rewritten: %q", got)
	}
}
