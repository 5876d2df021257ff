package domain

import "context"

// Document is one book record loaded from the corpus.
type Document struct {
	ID      string
	Title   string
	Author  string
	Genres  []string
	Summary string
	Year    int
}

// TaggedDocument is the token sequence of a document's summary, keyed by the document ID.
type TaggedDocument struct {
	Tokens []string
	Tag    string
}

// Hyperparameters control how an embedding provider is trained.
type Hyperparameters struct {
	VectorSize  int     `yaml:"vector_size" validate:"gt=0"`
	MinCount    int     `yaml:"min_count" validate:"gte=0"`
	Epochs      int     `yaml:"epochs" validate:"gt=0"`
	Seed        int64   `yaml:"seed"`
	Negative    int     `yaml:"negative" validate:"gt=0"`
	Alpha       float64 `yaml:"alpha" validate:"gt=0"`
	MinAlpha    float64 `yaml:"min_alpha" validate:"gt=0,ltefield=Alpha"`
	InferEpochs int     `yaml:"infer_epochs" validate:"gte=0"`
}

// DefaultHyperparameters mirrors the settings the book notebook trained with.
func DefaultHyperparameters() Hyperparameters {
	return Hyperparameters{
		VectorSize: 50,
		MinCount:   2,
		Epochs:     40,
		Seed:       1,
		Negative:   5,
		Alpha:      0.025,
		MinAlpha:   0.0001,
	}
}

// SimilarityResult is a ranked neighbour with its cosine correlation.
type SimilarityResult struct {
	Document Document
	Score    float64
}

// Embedder trains document vectors over a tagged corpus and infers vectors for unseen text.
// Implementations carry whatever state inference needs and serialize it through
// MarshalBinary/UnmarshalBinary.
type Embedder interface {
	Name() string
	Dimension() int
	Train(ctx context.Context, docs []TaggedDocument, params Hyperparameters) ([][]float64, error)
	Infer(ctx context.Context, tokens []string) ([]float64, error)
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
