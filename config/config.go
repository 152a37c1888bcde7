package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig configures the embedding service connection.
type EmbeddingConfig struct {
	Host        string `yaml:"host"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Type      string          `yaml:"type"` // "pinecone" or "badger"
	Namespace string          `yaml:"namespace"`
	Pinecone  *PineconeConfig `yaml:"pinecone,omitempty"`
	Badger    *BadgerConfig   `yaml:"badger,omitempty"`
}

// PineconeConfig contains connection details for a Pinecone index.
type PineconeConfig struct {
	Host        string `yaml:"host"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// BadgerConfig contains settings for the embedded local index.
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// ChunkingConfig configures how source text is split. Token mode uses
// overlapping token windows; paragraph mode accumulates whole paragraphs
// into character-budgeted segments.
type ChunkingConfig struct {
	Mode          string `yaml:"mode"` // "token" or "paragraph"
	MaxTokens     int    `yaml:"max_tokens"`
	OverlapTokens int    `yaml:"overlap_tokens"`
	Encoding      string `yaml:"encoding"`      // tiktoken encoding; "words" for the whitespace tokenizer
	ChunkSize     int    `yaml:"chunk_size"`    // paragraph mode: character budget per segment
	ChunkOverlap  int    `yaml:"chunk_overlap"` // paragraph mode: characters of trailing context
}

// RecordsConfig selects and configures the entity record source.
type RecordsConfig struct {
	Type    string         `yaml:"type"` // "rest" or "sqlite"
	REST    *RESTConfig    `yaml:"rest,omitempty"`
	SQLite  *SQLiteConfig  `yaml:"sqlite,omitempty"`
	TextDir string         `yaml:"text_dir"` // optional directory of {id}.txt source files
}

// RESTConfig contains connection details for the records HTTP API.
type RESTConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SQLiteConfig contains the path to a local SQLite extract.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// IngestConfig configures batch processing behavior.
type IngestConfig struct {
	PoolSize       int  `yaml:"pool_size"`
	DeleteExisting bool `yaml:"delete_existing"`
	SkipUnchanged  bool `yaml:"skip_unchanged"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Records   RecordsConfig   `yaml:"records"`
	Ingest    IngestConfig    `yaml:"ingest"`
}

// Load reads a config from the specified path. A missing file returns
// defaults rather than an error.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file exists: a local
// badger index and the whitespace tokenizer, so a fresh checkout works
// without credentials.
func Default() *AppConfig {
	cfg := &AppConfig{
		Index: IndexConfig{
			Type:   "badger",
			Badger: &BadgerConfig{Path: "landvec.db"},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "badger"
	}
	if cfg.Index.Type == "badger" && cfg.Index.Badger == nil {
		cfg.Index.Badger = &BadgerConfig{Path: "landvec.db"}
	}
	if cfg.Index.Type == "pinecone" && cfg.Index.Pinecone != nil {
		if cfg.Index.Pinecone.APIKeyEnv == "" {
			cfg.Index.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
		}
		if cfg.Index.Pinecone.TimeoutSecs == 0 {
			cfg.Index.Pinecone.TimeoutSecs = 30
		}
	}

	if cfg.Chunking.Mode == "" {
		cfg.Chunking.Mode = "token"
	}
	if cfg.Chunking.MaxTokens == 0 {
		cfg.Chunking.MaxTokens = 1000
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = 200
	}
	if cfg.Chunking.Encoding == "" {
		cfg.Chunking.Encoding = "cl100k_base"
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 2000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}

	if cfg.Records.Type == "" {
		cfg.Records.Type = "sqlite"
	}
	if cfg.Records.Type == "sqlite" && cfg.Records.SQLite == nil {
		cfg.Records.SQLite = &SQLiteConfig{Path: "landmarks.db"}
	}
	if cfg.Records.Type == "rest" && cfg.Records.REST != nil {
		if cfg.Records.REST.TimeoutSecs == 0 {
			cfg.Records.REST.TimeoutSecs = 15
		}
	}

	if cfg.Ingest.PoolSize == 0 {
		cfg.Ingest.PoolSize = 4
	}
}

// Validate checks cross-field constraints that defaults cannot repair.
func (c *AppConfig) Validate() error {
	switch c.Chunking.Mode {
	case "token":
		if c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
			return fmt.Errorf("chunking overlap (%d) must be smaller than max tokens (%d)",
				c.Chunking.OverlapTokens, c.Chunking.MaxTokens)
		}
	case "paragraph":
		if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
			return fmt.Errorf("chunking overlap (%d) must be smaller than chunk size (%d)",
				c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
		}
	default:
		return fmt.Errorf("unknown chunking mode %q", c.Chunking.Mode)
	}
	switch c.Index.Type {
	case "pinecone":
		if c.Index.Pinecone == nil || c.Index.Pinecone.Host == "" {
			return errors.New("index.pinecone.host is required for the pinecone backend")
		}
	case "badger":
	default:
		return fmt.Errorf("unknown index type %q", c.Index.Type)
	}
	switch c.Records.Type {
	case "rest":
		if c.Records.REST == nil || c.Records.REST.BaseURL == "" {
			return errors.New("records.rest.base_url is required for the rest provider")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown records type %q", c.Records.Type)
	}
	return nil
}
