package embedding

import (
	"fmt"
	"time"

	"bookrec/internal/domain"
	"bookrec/internal/embedding/openai"
	"bookrec/internal/embedding/paragraph"
	"bookrec/internal/embedding/tfidf"
)

// Embedder trains document vectors and infers vectors for unseen text.
type Embedder = domain.Embedder

// OpenAIOptions configures the remote provider.
type OpenAIOptions struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// New returns an untrained provider by name. An empty name selects the paragraph provider.
func New(name string, opts *OpenAIOptions) (Embedder, error) {
	switch name {
	case paragraph.Name, "":
		return paragraph.NewEmbedder(), nil
	case tfidf.Name:
		return tfidf.NewEmbedder(), nil
	case openai.Name:
		var cfg openai.Config
		if opts != nil {
			cfg = openai.Config{
				BaseURL:   opts.BaseURL,
				APIKeyEnv: opts.APIKeyEnv,
				Model:     opts.Model,
				Timeout:   opts.Timeout,
				BatchSize: opts.BatchSize,
			}
		}
		return openai.NewClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", name)
	}
}

// Restore rebuilds a trained provider from its name and serialized state.
func Restore(name string, state []byte) (Embedder, error) {
	e, err := New(name, nil)
	if err != nil {
		return nil, err
	}
	if err := e.UnmarshalBinary(state); err != nil {
		return nil, fmt.Errorf("restore %s embedder: %w", name, err)
	}
	return e, nil
}
