package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/domain"
)

func docs(ids ...string) []domain.Document {
	out := make([]domain.Document, len(ids))
	for i, id := range ids {
		out[i] = domain.Document{ID: id, Title: "T" + id}
	}
	return out
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, docs("a", "b", "c", "d"), [][]float64{{1, 0}, {0, 0}, {1, 1}, {2, 2}}))

	res, err := s.Search(ctx, []float64{1, 0}, 10, "a")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "c", res[0].Document.ID)
	assert.Equal(t, "d", res[1].Document.ID)
	assert.Equal(t, "b", res[2].Document.ID)
	assert.Equal(t, 0.0, res[2].Score)

	res, err = s.Search(ctx, []float64{1, 0}, 1, "")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "a", res[0].Document.ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-12)

	_, err = s.Search(ctx, []float64{1}, 1, "")
	assert.Error(t, err)
}

func TestUpsertReplacesAndValidates(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.Error(t, s.Upsert(ctx, docs("a"), nil))
	require.Error(t, s.Upsert(ctx, docs("a"), [][]float64{{1, 2, 3}}))

	require.NoError(t, s.Upsert(ctx, docs("a", "b"), [][]float64{{1, 0}, {0, 1}}))
	require.NoError(t, s.Upsert(ctx, docs("a"), [][]float64{{0, 1}}))
	assert.Equal(t, 2, s.Len())

	res, err := s.Search(ctx, []float64{0, 1}, 2, "")
	require.NoError(t, err)
	assert.Equal(t, "a", res[0].Document.ID)
	assert.Equal(t, "b", res[1].Document.ID)

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentSearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, docs("a", "b", "c"), [][]float64{{1, 0}, {0, 1}, {1, 1}}))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Search(ctx, []float64{1, 0}, 2, "a")
			assert.NoError(t, err)
			assert.Len(t, res, 2)
		}()
	}
	wg.Wait()
}
