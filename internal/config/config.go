package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dario.cat/mergo"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"bookrec/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env" validate:"required"`
	Model       string `yaml:"model" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
	BatchSize   int    `yaml:"batch_size" validate:"gte=0"`
}

// EmbedderConfig selects the embedding provider and its training hyperparameters.
type EmbedderConfig struct {
	Type   string                 `yaml:"type" validate:"oneof=paragraph tfidf openai"`
	Params domain.Hyperparameters `yaml:"params"`
	OpenAI *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
}

// CorpusConfig points at the default training dataset.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// StoreConfig controls where trained models are written.
type StoreConfig struct {
	Dir  string `yaml:"dir" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

// QueryConfig holds similarity query defaults.
type QueryConfig struct {
	K int `yaml:"k" validate:"gt=0"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type" validate:"oneof=memory qdrant"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty" validate:"required_if=Type qdrant"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url" validate:"required,url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection" validate:"required"`
	TimeoutSecs int    `yaml:"timeout_secs" validate:"gte=0"`
}

// SummarizerConfig selects and configures the summarizer used for short summaries.
type SummarizerConfig struct {
	Type         string `yaml:"type" validate:"oneof=frequency"`
	MaxSentences int    `yaml:"max_sentences" validate:"gt=0"`
}

// HTTPConfig configures the JSON API server.
type HTTPConfig struct {
	Addr                string `yaml:"addr" validate:"required"`
	RequestTimeoutSecs  int    `yaml:"request_timeout_secs" validate:"gt=0"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs" validate:"gt=0"`
}

func (c HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

func (c HTTPConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

// LoggingConfig selects the zap preset and level.
type LoggingConfig struct {
	Env   string `yaml:"env" validate:"oneof=local dev prod"`
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Corpus      CorpusConfig      `yaml:"corpus"`
	Store       StoreConfig       `yaml:"store"`
	Query       QueryConfig       `yaml:"query"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	HTTP        HTTPConfig        `yaml:"http"`
	Logging     LoggingConfig     `yaml:"logging"`
}

var validate = validator.New()

// Load reads a config from path, fills unset fields with defaults and validates it.
// A missing file yields the defaults.
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
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Resolve loads path when it is set and falls back to LoadDefault otherwise.
func Resolve(path string) (*AppConfig, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	return LoadDefault()
}

// LoadDefault tries ./config.yaml first, then ~/.config/bookrec/config.yaml.
// If neither exists, it writes defaults to ~/.config/bookrec/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
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

// Validate checks the struct tags of cfg.
func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bookrec", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{
			Type:   "paragraph",
			Params: domain.DefaultHyperparameters(),
			OpenAI: &OpenAIEmbedderConfig{
				BaseURL:     "https://api.openai.com/v1",
				APIKeyEnv:   "OPENAI_API_KEY",
				Model:       "text-embedding-3-small",
				TimeoutSecs: 30,
				BatchSize:   32,
			},
		},
		Store:       StoreConfig{Dir: "models", Name: "books"},
		Query:       QueryConfig{K: 10},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 3},
		HTTP:        HTTPConfig{Addr: ":8080", RequestTimeoutSecs: 30, ShutdownTimeoutSecs: 10},
		Logging:     LoggingConfig{Env: "local", Level: "info"},
	}
}

// applyDefaults fills every zero-valued field of cfg from Default.
// Zero-valued hyperparameters (including Seed 0) are therefore replaced.
func applyDefaults(cfg *AppConfig) error {
	def := Default()
	if cfg.VectorStore.Type == "qdrant" {
		def.VectorStore.Qdrant = &QdrantConfig{URL: "http://localhost:6333", Collection: "books", TimeoutSecs: 15}
	}
	if err := mergo.Merge(cfg, def); err != nil {
		return fmt.Errorf("apply config defaults: %w", err)
	}
	return nil
}
