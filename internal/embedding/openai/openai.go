package openai

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"bookrec/internal/domain"
)

// Name identifies this provider in configuration and model files.
const Name = "openai"

// Client is an OpenAI-compatible embeddings provider implementing domain.Embedder.
// Training embeds every summary remotely; nothing is fitted locally.
// A Client is safe for concurrent use.
type Client struct {
	cfg Config

	apiOnce sync.Once
	api     *goopenai.Client
	apiErr  error

	mu        sync.RWMutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	BatchSize int
}

// NewClient creates an embeddings client. The API key is read from cfg.APIKeyEnv
// when the first request is made, so a client restored from a model file works
// as long as the environment provides the key.
func NewClient(cfg Config) *Client {
	return &Client{cfg: withDefaults(cfg)}
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Model == "" {
		cfg.Model = string(goopenai.SmallEmbedding3)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return cfg
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return Name }

// Dimension returns the dimensionality of the produced embedding vectors.
// It is known after the first successful request.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Train embeds each document's tokens. params.MinCount only decides whether the
// vocabulary is degenerate; the remote model sees every token and no other
// hyperparameter applies.
func (c *Client) Train(ctx context.Context, docs []domain.TaggedDocument, params domain.Hyperparameters) ([][]float64, error) {
	if len(docs) == 0 {
		return nil, domain.Trainingf("empty corpus")
	}
	texts := make([]string, len(docs))
	counts := make(map[string]int)
	for i, d := range docs {
		texts[i] = strings.Join(d.Tokens, " ")
		for _, tok := range d.Tokens {
			counts[tok]++
		}
	}
	if len(counts) == 0 {
		return nil, domain.Trainingf("every document has an empty token sequence")
	}
	if !anyReaches(counts, params.MinCount) {
		return nil, domain.Trainingf("no token occurs at least %d times; vocabulary is empty", params.MinCount)
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(texts))
		vecs, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Infer embeds the query tokens. An empty token list yields the zero vector.
func (c *Client) Infer(ctx context.Context, tokens []string) ([]float64, error) {
	if len(tokens) == 0 {
		return make([]float64, c.Dimension()), nil
	}
	vecs, err := c.embed(ctx, []string{strings.Join(tokens, " ")})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float64, error) {
	api, err := c.client()
	if err != nil {
		return nil, err
	}
	resp, err := api.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(c.cfg.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}
	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		v := make([]float64, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float64(x)
		}
		if err := c.checkDimension(len(v)); err != nil {
			return nil, err
		}
		out[d.Index] = v
	}
	return out, nil
}

// checkDimension fixes the dimension on the first vector and rejects later mismatches.
func (c *Client) checkDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = n
	}
	if n != c.dimension {
		return fmt.Errorf("openai embeddings: dimension %d, expected %d", n, c.dimension)
	}
	return nil
}

func (c *Client) client() (*goopenai.Client, error) {
	c.apiOnce.Do(func() {
		key := os.Getenv(c.cfg.APIKeyEnv)
		if key == "" {
			c.apiErr = fmt.Errorf("missing API key in env %s", c.cfg.APIKeyEnv)
			return
		}
		conf := goopenai.DefaultConfig(key)
		conf.BaseURL = c.cfg.BaseURL
		conf.HTTPClient = &http.Client{Timeout: c.cfg.Timeout}
		c.api = goopenai.NewClientWithConfig(conf)
	})
	return c.api, c.apiErr
}

func anyReaches(counts map[string]int, minCount int) bool {
	for _, n := range counts {
		if n >= minCount {
			return true
		}
	}
	return false
}

type snapshot struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
}

// MarshalBinary records the endpoint and model; the API key is never persisted.
func (c *Client) MarshalBinary() ([]byte, error) {
	dim := c.Dimension()
	if dim == 0 {
		return nil, errors.New("openai embedder has produced no vectors")
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		BaseURL:   c.cfg.BaseURL,
		APIKeyEnv: c.cfg.APIKeyEnv,
		Model:     c.cfg.Model,
		Dimension: dim,
	})
	return buf.Bytes(), err
}

// UnmarshalBinary restores the endpoint and model written by MarshalBinary.
func (c *Client) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	c.cfg = withDefaults(Config{BaseURL: s.BaseURL, APIKeyEnv: s.APIKeyEnv, Model: s.Model, Timeout: c.cfg.Timeout})
	c.mu.Lock()
	c.dimension = s.Dimension
	c.mu.Unlock()
	return nil
}
