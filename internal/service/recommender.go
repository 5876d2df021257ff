package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookrec/internal/domain"
	"bookrec/internal/metrics"
	"bookrec/internal/model"
	"bookrec/internal/similarity"
	"bookrec/internal/vectorstore"
)

// Recommender answers similarity queries against a trained model.
// Without an index it ranks the model's vectors directly; with one,
// Index must be called before querying.
type Recommender struct {
	defaultK int
	index    vectorstore.Storage
	logger   *zap.Logger
}

type Option func(*Recommender)

// WithIndex routes ranking through a vector store.
func WithIndex(s vectorstore.Storage) Option {
	return func(r *Recommender) { r.index = s }
}

// NewRecommender returns a Recommender. defaultK <= 0 selects similarity.DefaultK.
func NewRecommender(defaultK int, logger *zap.Logger, opts ...Option) *Recommender {
	if defaultK <= 0 {
		defaultK = similarity.DefaultK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recommender{defaultK: defaultK, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Index loads every document vector of m into the configured vector store.
func (r *Recommender) Index(ctx context.Context, m *model.Model) error {
	if r.index == nil {
		return nil
	}
	if err := r.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if err := r.index.Init(ctx, m.Dimension()); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	if err := r.index.Upsert(ctx, m.Documents(), m.Vectors()); err != nil {
		return fmt.Errorf("upsert index: %w", err)
	}
	r.logger.Info("indexed model", zap.Int("documents", m.Len()), zap.Int("dimension", m.Dimension()))
	return nil
}

// SimilarByTitle ranks every other document against the one named by titleOrID.
func (r *Recommender) SimilarByTitle(ctx context.Context, m *model.Model, titleOrID string, k int) (_ []domain.SimilarityResult, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("title", start, err) }(time.Now())
	i, err := m.Resolve(titleOrID)
	if err != nil {
		return nil, err
	}
	return r.byIndex(ctx, m, i, k)
}

// SimilarByText infers a vector for text and ranks all documents against it.
func (r *Recommender) SimilarByText(ctx context.Context, m *model.Model, text string, k int) (_ []domain.SimilarityResult, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("text", start, err) }(time.Now())
	return r.byText(ctx, m, text, k)
}

// Recommend prefers a known title, falls back to the summary text when the title
// is unknown, and fails with domain.ErrEmptyQuery when neither is given.
func (r *Recommender) Recommend(ctx context.Context, m *model.Model, title, summary string, k int) (_ []domain.SimilarityResult, err error) {
	defer func(start time.Time) { metrics.ObserveQuery("recommend", start, err) }(time.Now())
	title, summary = strings.TrimSpace(title), strings.TrimSpace(summary)
	switch {
	case title == "" && summary == "":
		return nil, domain.ErrEmptyQuery
	case title == "":
		return r.byText(ctx, m, summary, k)
	}
	i, err := m.Resolve(title)
	if err == nil {
		return r.byIndex(ctx, m, i, k)
	}
	if summary == "" {
		return nil, err
	}
	r.logger.Debug("title not in catalog, using summary", zap.String("title", title))
	return r.byText(ctx, m, summary, k)
}

func (r *Recommender) byIndex(ctx context.Context, m *model.Model, i, k int) ([]domain.SimilarityResult, error) {
	doc := m.Document(i)
	r.logger.Debug("similar by title", zap.String("id", doc.ID), zap.String("title", doc.Title))
	return r.rank(ctx, m, m.Vector(i), k, i)
}

func (r *Recommender) byText(ctx context.Context, m *model.Model, text string, k int) ([]domain.SimilarityResult, error) {
	vec, err := m.Infer(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("infer query vector: %w", err)
	}
	return r.rank(ctx, m, vec, k, -1)
}

// rank returns the top k documents for query, leaving out document skip (-1 for none).
func (r *Recommender) rank(ctx context.Context, m *model.Model, query []float64, k, skip int) ([]domain.SimilarityResult, error) {
	if k <= 0 {
		k = r.defaultK
	}
	if r.index != nil {
		excludeID := ""
		if skip >= 0 {
			excludeID = m.Document(skip).ID
		}
		res, err := r.index.Search(ctx, query, k, excludeID)
		if err != nil {
			return nil, fmt.Errorf("search index: %w", err)
		}
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cands := similarity.TopK(query, m.Vectors(), k, func(j int) bool { return j == skip })
	results := make([]domain.SimilarityResult, len(cands))
	for n, c := range cands {
		results[n] = domain.SimilarityResult{Document: m.Document(c.Index), Score: c.Score}
	}
	return results, nil
}
