// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (COURSECHAT_* runtime overrides)
//  2. Config file (coursechat.yaml in the working directory or ~/.coursechat/)
//  3. Default values
//
// Error handling uses sentinel errors so callers can check categories with
// errors.Is(); Load validates immediately and fails fast.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidChunking indicates chunk size / overlap values that cannot
	// produce a valid sliding window.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidMaxResults indicates a non-positive search result cap.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidHistory indicates a non-positive history depth.
	ErrInvalidHistory = errors.New("invalid history depth")

	// ErrInvalidModelName indicates a missing model or embedder name.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidDimensions indicates a non-positive embedding dimension.
	ErrInvalidDimensions = errors.New("invalid embedding dimensions")
)

// Defaults for the Gemini stack.
const (
	// DefaultModelName is the generation model.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultEmbedderModel outputs 3072 dimensions by default but supports
	// truncation via OutputDimensionality; we pin 768.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDimensions is the pinned vector width.
	DefaultEmbeddingDimensions = 768
)

// Config stores application configuration.
type Config struct {
	// AI model configuration
	ModelName           string `mapstructure:"model_name"`
	EmbedderModel       string `mapstructure:"embedder_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`

	// Document processing
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Search
	MaxResults    int     `mapstructure:"max_results"`
	MinSimilarity float32 `mapstructure:"min_similarity"`

	// Conversation history: exchanges retained per session
	MaxHistoryExchanges int `mapstructure:"max_history_exchanges"`

	// Paths
	DocsDir    string `mapstructure:"docs_dir"`
	PersistDir string `mapstructure:"persist_dir"`

	// HTTP server
	HTTPAddr string `mapstructure:"http_addr"`
}

// Load loads configuration. When configFile is non-empty it is used
// directly; otherwise coursechat.yaml is searched for in the working
// directory and ~/.coursechat/. A missing config file is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COURSECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("coursechat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".coursechat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model_name", DefaultModelName)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedding_dimensions", DefaultEmbeddingDimensions)

	v.SetDefault("chunk_size", 800)
	v.SetDefault("chunk_overlap", 100)

	v.SetDefault("max_results", 5)
	v.SetDefault("min_similarity", 0.3)

	v.SetDefault("max_history_exchanges", 2)

	v.SetDefault("docs_dir", "./docs")
	v.SetDefault("persist_dir", "./data/vectordb")

	v.SetDefault("http_addr", ":8000")
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name is empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model is empty", ErrInvalidModelName)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimensions, c.EmbeddingDimensions)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, chunk_size)", ErrInvalidChunking, c.ChunkOverlap)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.MaxHistoryExchanges <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidHistory, c.MaxHistoryExchanges)
	}
	return nil
}

// FullModelName returns the provider-qualified model name for Genkit.
// A name already containing "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	return "googleai/" + c.ModelName
}
