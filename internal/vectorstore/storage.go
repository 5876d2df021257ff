package vectorstore

import (
	"context"

	"bookrec/internal/domain"
)

// Storage holds document vectors and answers nearest-neighbour queries.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, docs []domain.Document, vectors [][]float64) error
	// Search returns at most topK documents ranked by cosine similarity to vector.
	// A non-empty excludeID leaves that document out of the ranking.
	Search(ctx context.Context, vector []float64, topK int, excludeID string) ([]domain.SimilarityResult, error)
	Clear(ctx context.Context) error
}
