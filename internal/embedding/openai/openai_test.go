package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrec/internal/domain"
)

// fakeServer answers /v1/embeddings with [len(text), words, 1] per input.
func fakeServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i, in := range req.Input {
			data[i] = item{
				Object:    "embedding",
				Embedding: []float32{float32(len(in)), float32(len(strings.Fields(in))), 1},
				Index:     i,
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
}

// anyToken keeps every token in the vocabulary check.
func anyToken() domain.Hyperparameters {
	p := domain.DefaultHyperparameters()
	p.MinCount = 1
	return p
}

func TestTrainAndInfer(t *testing.T) {
	t.Setenv("BOOKREC_TEST_KEY", "test-key")
	var calls atomic.Int64
	srv := fakeServer(t, &calls)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "BOOKREC_TEST_KEY", BatchSize: 2})
	docs := []domain.TaggedDocument{
		{Tag: "1", Tokens: []string{"spaceship", "flies"}},
		{Tag: "2", Tokens: []string{"chef"}},
		{Tag: "3", Tokens: []string{"a", "cake", "bakes"}},
	}
	vecs, err := c.Train(context.Background(), docs, anyToken())
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, [][]float64{{15, 2, 1}, {4, 1, 1}, {12, 3, 1}}, vecs)
	assert.Equal(t, 3, c.Dimension())

	v, err := c.Infer(context.Background(), []string{"chef"})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1, 1}, v)

	zero, err := c.Infer(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, zero)
}

func TestMissingKey(t *testing.T) {
	t.Setenv("BOOKREC_EMPTY_KEY", "")
	c := NewClient(Config{APIKeyEnv: "BOOKREC_EMPTY_KEY"})
	_, err := c.Infer(context.Background(), []string{"word"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOOKREC_EMPTY_KEY")
}

func TestEmptyCorpus(t *testing.T) {
	c := NewClient(Config{})
	_, err := c.Train(context.Background(), nil, domain.DefaultHyperparameters())
	assert.ErrorIs(t, err, domain.ErrTraining)
	_, err = c.Train(context.Background(), []domain.TaggedDocument{{Tag: "1"}}, domain.DefaultHyperparameters())
	assert.ErrorIs(t, err, domain.ErrTraining)
}

func TestTrainRejectsDegenerateVocabulary(t *testing.T) {
	t.Setenv("BOOKREC_TEST_KEY", "test-key")
	var calls atomic.Int64
	srv := fakeServer(t, &calls)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "BOOKREC_TEST_KEY"})
	docs := []domain.TaggedDocument{
		{Tag: "1", Tokens: []string{"spaceship", "flies"}},
		{Tag: "2", Tokens: []string{"chef", "bakes"}},
	}
	p := domain.DefaultHyperparameters()
	p.MinCount = 2
	_, err := c.Train(context.Background(), docs, p)
	assert.ErrorIs(t, err, domain.ErrTraining)
	assert.Contains(t, err.Error(), "at least 2 times")
	assert.Zero(t, calls.Load())

	p.MinCount = 1
	_, err = c.Train(context.Background(), docs, p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestConcurrentInferOnRestoredClient(t *testing.T) {
	t.Setenv("BOOKREC_TEST_KEY", "test-key")
	var calls atomic.Int64
	srv := fakeServer(t, &calls)
	defer srv.Close()

	trained := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "BOOKREC_TEST_KEY"})
	_, err := trained.Train(context.Background(), []domain.TaggedDocument{{Tag: "1", Tokens: []string{"word"}}}, anyToken())
	require.NoError(t, err)
	data, err := trained.MarshalBinary()
	require.NoError(t, err)

	restored := &Client{}
	require.NoError(t, restored.UnmarshalBinary(data))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	vecs := make([][]float64, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecs[i], errs[i] = restored.Infer(context.Background(), []string{"chef", "cake"})
			_ = restored.Dimension()
		}()
	}
	wg.Wait()
	for i := range 8 {
		require.NoError(t, errs[i])
		assert.Equal(t, []float64{9, 2, 1}, vecs[i])
	}
	assert.Equal(t, 3, restored.Dimension())
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Setenv("BOOKREC_TEST_KEY", "test-key")
	var calls atomic.Int64
	srv := fakeServer(t, &calls)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/v1", APIKeyEnv: "BOOKREC_TEST_KEY", Model: "custom"})
	_, err := c.MarshalBinary()
	require.Error(t, err)
	_, err = c.Train(context.Background(), []domain.TaggedDocument{{Tag: "1", Tokens: []string{"word"}}}, anyToken())
	require.NoError(t, err)

	data, err := c.MarshalBinary()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "test-key")

	restored := &Client{}
	require.NoError(t, restored.UnmarshalBinary(data))
	assert.Equal(t, 3, restored.Dimension())
	v, err := restored.Infer(context.Background(), []string{"word"})
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 1, 1}, v)
}
