package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookrec/internal/domain"
	"bookrec/internal/embedding/paragraph"
	"bookrec/internal/embedding/tfidf"
	"bookrec/internal/model"
	"bookrec/internal/vectorstore/memory"
)

func spaceBooks() []domain.Document {
	return []domain.Document{
		{ID: "1", Title: "A", Author: "Ann", Summary: "a spaceship flies to mars"},
		{ID: "2", Title: "B", Author: "Bob", Summary: "a starship flies to jupiter"},
		{ID: "3", Title: "C", Author: "Cid", Summary: "a chef bakes a cake"},
	}
}

func paragraphModel(t *testing.T) *model.Model {
	t.Helper()
	p := domain.DefaultHyperparameters()
	p.VectorSize = 16
	p.MinCount = 1
	p.Epochs = 400
	p.Seed = 42
	m, err := model.Train(context.Background(), paragraph.NewEmbedder(), p, spaceBooks(), zap.NewNop())
	require.NoError(t, err)
	return m
}

func fakeModel(t *testing.T, n int) *model.Model {
	t.Helper()
	f := gofakeit.New(11)
	docs := make([]domain.Document, n)
	for i := range docs {
		docs[i] = domain.Document{
			ID:      f.UUID(),
			Title:   fmt.Sprintf("%s %d", f.Sentence(3), i),
			Author:  f.Name(),
			Genres:  []string{f.RandomString([]string{"Fantasy", "Mystery", "Romance", "Science Fiction"})},
			Summary: f.Paragraph(1, 3, 10, " "),
			Year:    f.Number(1900, 2024),
		}
	}
	p := domain.DefaultHyperparameters()
	p.MinCount = 1
	m, err := model.Train(context.Background(), tfidf.NewEmbedder(), p, docs, zap.NewNop())
	require.NoError(t, err)
	return m
}

func ids(results []domain.SimilarityResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Document.ID
	}
	return out
}

func TestSimilarByTitleExample(t *testing.T) {
	m := paragraphModel(t)
	r := NewRecommender(0, nil)

	res, err := r.SimilarByTitle(context.Background(), m, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, ids(res))
	assert.Equal(t, "B", res[0].Document.Title)
	assert.Greater(t, res[0].Score, res[1].Score)

	byID, err := r.SimilarByTitle(context.Background(), m, "1", 2)
	require.NoError(t, err)
	assert.Equal(t, res, byID)
}

func TestSimilarByTextExample(t *testing.T) {
	m := paragraphModel(t)
	res, err := NewRecommender(0, nil).SimilarByText(context.Background(), m, "a spaceship flies to mars", 3)
	require.NoError(t, err)
	got := ids(res)
	require.Len(t, got, 3)
	assert.Less(t, indexOf(got, "1"), indexOf(got, "3"))
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func TestSimilarByTitleProperties(t *testing.T) {
	m := fakeModel(t, 30)
	r := NewRecommender(0, zap.NewNop())
	for _, k := range []int{1, 5, 100} {
		for _, d := range m.Documents() {
			res, err := r.SimilarByTitle(context.Background(), m, d.Title, k)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res), k)
			assert.NotContains(t, ids(res), d.ID)
			for i := 1; i < len(res); i++ {
				assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score)
			}
		}
	}

	res, err := r.SimilarByTitle(context.Background(), m, m.Document(0).ID, 0)
	require.NoError(t, err)
	assert.Len(t, res, 10)
}

func TestSimilarByTextFindsOwnSummary(t *testing.T) {
	m := fakeModel(t, 30)
	r := NewRecommender(3, nil)
	for _, d := range m.Documents() {
		res, err := r.SimilarByText(context.Background(), m, d.Summary, 0)
		require.NoError(t, err)
		assert.Len(t, res, 3)
		assert.Contains(t, ids(res), d.ID)
	}
}

func TestSimilarByTextWithoutTokens(t *testing.T) {
	m := paragraphModel(t)
	res, err := NewRecommender(0, nil).SimilarByText(context.Background(), m, "!!! 42", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(res))
	for _, r := range res {
		assert.Equal(t, 0.0, r.Score)
	}
}

func TestSimilarByTitleNotFound(t *testing.T) {
	m := paragraphModel(t)
	_, err := NewRecommender(0, nil).SimilarByTitle(context.Background(), m, "Missing Book", 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "Missing Book")
}

func TestRecommend(t *testing.T) {
	m := paragraphModel(t)
	r := NewRecommender(0, nil)
	ctx := context.Background()

	byTitle, err := r.SimilarByTitle(ctx, m, "A", 0)
	require.NoError(t, err)
	got, err := r.Recommend(ctx, m, " a ", "a chef bakes a cake", 0)
	require.NoError(t, err)
	assert.Equal(t, byTitle, got, "a known title wins over the summary")

	byText, err := r.SimilarByText(ctx, m, "a chef bakes a cake", 0)
	require.NoError(t, err)
	got, err = r.Recommend(ctx, m, "Unknown", "a chef bakes a cake", 0)
	require.NoError(t, err)
	assert.Equal(t, byText, got)
	got, err = r.Recommend(ctx, m, "", "a chef bakes a cake", 0)
	require.NoError(t, err)
	assert.Equal(t, byText, got)

	_, err = r.Recommend(ctx, m, "Unknown", "  ", 0)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = r.Recommend(ctx, m, " ", "", 0)
	assert.True(t, errors.Is(err, domain.ErrEmptyQuery))
}

func TestIndexedRankingMatchesDirect(t *testing.T) {
	m := fakeModel(t, 20)
	ctx := context.Background()
	direct := NewRecommender(5, nil)
	indexed := NewRecommender(5, nil, WithIndex(memory.NewStorage()))
	require.NoError(t, indexed.Index(ctx, m))

	for _, d := range m.Documents() {
		want, err := direct.SimilarByTitle(ctx, m, d.ID, 0)
		require.NoError(t, err)
		got, err := indexed.SimilarByTitle(ctx, m, d.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

type failingIndex struct{ *memory.Storage }

func (failingIndex) Search(context.Context, []float64, int, string) ([]domain.SimilarityResult, error) {
	return nil, errors.New("index down")
}

func TestIndexErrorsPropagate(t *testing.T) {
	m := paragraphModel(t)
	r := NewRecommender(0, nil, WithIndex(failingIndex{Storage: memory.NewStorage()}))
	require.NoError(t, r.Index(context.Background(), m))
	_, err := r.SimilarByTitle(context.Background(), m, "A", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index down")
}

func TestConcurrentQueries(t *testing.T) {
	m := fakeModel(t, 15)
	r := NewRecommender(4, nil)
	want, err := r.SimilarByTitle(context.Background(), m, m.Document(0).ID, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.SimilarByTitle(context.Background(), m, m.Document(0).ID, 0)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestSessionDelegates(t *testing.T) {
	m := paragraphModel(t)
	r := NewRecommender(0, nil)
	s := r.Bind(m)
	ctx := context.Background()
	assert.Same(t, m, s.Model())

	want, err := r.SimilarByTitle(ctx, m, "B", 1)
	require.NoError(t, err)
	got, err := s.SimilarByTitle(ctx, "B", 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want, err = r.SimilarByText(ctx, m, "chef cake", 2)
	require.NoError(t, err)
	got, err = s.SimilarByText(ctx, "chef cake", 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Recommend(ctx, "", "", 1)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}
