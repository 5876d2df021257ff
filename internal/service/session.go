package service

import (
	"context"

	"bookrec/internal/domain"
	"bookrec/internal/model"
)

// Session binds a Recommender to one loaded model for front ends that serve a single model.
type Session struct {
	r *Recommender
	m *model.Model
}

func (r *Recommender) Bind(m *model.Model) *Session { return &Session{r: r, m: m} }

func (s *Session) Model() *model.Model { return s.m }

func (s *Session) SimilarByTitle(ctx context.Context, titleOrID string, k int) ([]domain.SimilarityResult, error) {
	return s.r.SimilarByTitle(ctx, s.m, titleOrID, k)
}

func (s *Session) SimilarByText(ctx context.Context, text string, k int) ([]domain.SimilarityResult, error) {
	return s.r.SimilarByText(ctx, s.m, text, k)
}

func (s *Session) Recommend(ctx context.Context, title, summary string, k int) ([]domain.SimilarityResult, error) {
	return s.r.Recommend(ctx, s.m, title, summary, k)
}
