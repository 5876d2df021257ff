package memory

import (
	"context"
	"errors"
	"sync"

	"bookrec/internal/domain"
	"bookrec/internal/similarity"
)

// Storage is an in-memory vector store using brute-force cosine similarity.
// Results with equal scores keep insertion order; zero-norm vectors rank last.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	docs      []domain.Document
	ids       map[string]int
}

func NewStorage() *Storage { return &Storage{ids: make(map[string]int)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.docs = nil
	s.ids = make(map[string]int)
	return nil
}

// Upsert adds documents, replacing the vector of any ID already present in place.
func (s *Storage) Upsert(_ context.Context, docs []domain.Document, vectors [][]float64) error {
	if len(docs) != len(vectors) {
		return errors.New("documents and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for i, d := range docs {
		if j, ok := s.ids[d.ID]; ok {
			s.docs[j] = d
			s.vectors[j] = vectors[i]
			continue
		}
		s.ids[d.ID] = len(s.docs)
		s.docs = append(s.docs, d)
		s.vectors = append(s.vectors, vectors[i])
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, topK int, excludeID string) ([]domain.SimilarityResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, errors.New("query vector dimension mismatch")
	}
	skip := func(int) bool { return false }
	if j, ok := s.ids[excludeID]; ok && excludeID != "" {
		skip = func(i int) bool { return i == j }
	}
	cands := similarity.TopK(vector, s.vectors, topK, skip)
	results := make([]domain.SimilarityResult, len(cands))
	for i, c := range cands {
		results[i] = domain.SimilarityResult{Document: s.docs[c.Index], Score: c.Score}
	}
	return results, nil
}

// Len returns the number of stored documents.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.docs = nil
	s.ids = make(map[string]int)
	return nil
}
