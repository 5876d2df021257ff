// Package model holds the trained book model: the document catalog, one embedding
// vector per document, and the provider able to infer vectors for new text.
//
// A Model is immutable once built and safe for concurrent readers.
package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"bookrec/internal/domain"
	"bookrec/internal/tokenizer"
)

var validate = validator.New()

// Model is a trained set of document vectors plus the parameters that produced it.
type Model struct {
	params           domain.Hyperparameters
	embedder         domain.Embedder
	documents        []domain.Document
	vectors          [][]float64
	trainedAt        time.Time
	trainingDuration time.Duration

	byID    map[string]int
	byTitle map[string]int
	byFold  map[string]int
}

// ValidateParams checks hyperparameters against their declared bounds.
func ValidateParams(params domain.Hyperparameters) error {
	if err := validate.Struct(params); err != nil {
		return domain.Trainingf("invalid hyperparameters: %v", err)
	}
	return nil
}

// Train tags docs, fits emb over them and returns the resulting model.
// Inputs are not modified.
func Train(ctx context.Context, emb domain.Embedder, params domain.Hyperparameters, docs []domain.Document, logger *zap.Logger) (*Model, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.Trainingf("empty corpus")
	}
	logger.Info("training started",
		zap.String("provider", emb.Name()),
		zap.Int("documents", len(docs)),
		zap.Int("vector_size", params.VectorSize),
		zap.Int("min_count", params.MinCount),
		zap.Int("epochs", params.Epochs),
	)
	start := time.Now()
	vectors, err := emb.Train(ctx, tokenizer.TagAll(docs), params)
	if err != nil {
		logger.Error("training failed", zap.String("provider", emb.Name()), zap.Error(err))
		return nil, err
	}
	m, err := New(emb, params, docs, vectors, start, time.Since(start))
	if err != nil {
		return nil, err
	}
	logger.Info("training finished",
		zap.String("provider", emb.Name()),
		zap.Int("dimension", emb.Dimension()),
		zap.Duration("duration", m.trainingDuration),
	)
	return m, nil
}

// New assembles a model from already computed vectors. It is used by Train and by the model store.
func New(emb domain.Embedder, params domain.Hyperparameters, docs []domain.Document, vectors [][]float64, trainedAt time.Time, took time.Duration) (*Model, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("model has %d documents but %d vectors", len(docs), len(vectors))
	}
	m := &Model{
		params:           params,
		embedder:         emb,
		documents:        make([]domain.Document, len(docs)),
		vectors:          make([][]float64, len(vectors)),
		trainedAt:        trainedAt,
		trainingDuration: took,
		byID:             make(map[string]int, len(docs)),
		byTitle:          make(map[string]int, len(docs)),
		byFold:           make(map[string]int, len(docs)),
	}
	dim := emb.Dimension()
	for i, d := range docs {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(vectors[i]), dim)
		}
		d.Genres = append([]string(nil), d.Genres...)
		m.documents[i] = d
		m.vectors[i] = append([]float64(nil), vectors[i]...)
		if _, dup := m.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate document id %q", d.ID)
		}
		m.byID[d.ID] = i
		// first occurrence wins for titles
		if _, ok := m.byTitle[d.Title]; !ok {
			m.byTitle[d.Title] = i
		}
		if _, ok := m.byFold[strings.ToLower(d.Title)]; !ok {
			m.byFold[strings.ToLower(d.Title)] = i
		}
	}
	return m, nil
}

// Len returns the number of documents.
func (m *Model) Len() int { return len(m.documents) }

// Dimension returns the embedding vector size.
func (m *Model) Dimension() int { return m.embedder.Dimension() }

// Params returns the hyperparameters the model was trained with.
func (m *Model) Params() domain.Hyperparameters { return m.params }

// Provider returns the embedding provider name.
func (m *Model) Provider() string { return m.embedder.Name() }

// Embedder returns the trained provider.
func (m *Model) Embedder() domain.Embedder { return m.embedder }

// TrainedAt returns when training started.
func (m *Model) TrainedAt() time.Time { return m.trainedAt }

// TrainingDuration returns how long training took.
func (m *Model) TrainingDuration() time.Duration { return m.trainingDuration }

// Document returns the i-th document in corpus order.
func (m *Model) Document(i int) domain.Document { return m.documents[i] }

// Documents returns a copy of the catalog in corpus order.
func (m *Model) Documents() []domain.Document {
	return append([]domain.Document(nil), m.documents...)
}

// Vector returns the i-th document vector. Callers must not modify it.
func (m *Model) Vector(i int) []float64 { return m.vectors[i] }

// Vectors returns every document vector in corpus order. Callers must not modify them.
func (m *Model) Vectors() [][]float64 { return m.vectors }

// Resolve finds a document by identifier, then exact title, then case-insensitive title.
func (m *Model) Resolve(query string) (int, error) {
	if i, ok := m.byID[query]; ok {
		return i, nil
	}
	if i, ok := m.byTitle[query]; ok {
		return i, nil
	}
	if i, ok := m.byFold[strings.ToLower(strings.TrimSpace(query))]; ok {
		return i, nil
	}
	return -1, domain.NewNotFound(query)
}

// Infer tokenizes text and infers its vector with the model's provider.
func (m *Model) Infer(ctx context.Context, text string) ([]float64, error) {
	return m.embedder.Infer(ctx, tokenizer.Tokenize(text))
}
