// Package paragraph implements paragraph vectors (PV-DBOW) trained with negative sampling.
//
// Each document owns a vector that is trained to predict the words of its summary
// against a shared table of output word weights. Inference freezes the word weights
// and fits a fresh vector for the new text, so an unseen summary lands near the
// documents that use the same vocabulary.
package paragraph

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/viterin/vek"

	"bookrec/internal/domain"
)

// Name identifies this provider in configuration and model files.
const Name = "paragraph"

// Embedder is a PV-DBOW paragraph vector model.
type Embedder struct {
	params   domain.Hyperparameters
	vocab    []string
	counts   []int
	index    map[string]int
	cum      []float64 // cumulative unigram^0.75 weights for negative sampling
	out      [][]float64
	prepared bool
}

// NewEmbedder creates an untrained paragraph vector model.
func NewEmbedder() *Embedder {
	return &Embedder{index: make(map[string]int)}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return Name }

// Dimension returns the vector size the model was trained with.
func (e *Embedder) Dimension() int { return e.params.VectorSize }

// Vocabulary returns the retained tokens, most frequent first.
func (e *Embedder) Vocabulary() []string {
	out := make([]string, len(e.vocab))
	copy(out, e.vocab)
	return out
}

// Train fits one vector per tagged document. Vectors are returned in input order.
func (e *Embedder) Train(ctx context.Context, docs []domain.TaggedDocument, params domain.Hyperparameters) ([][]float64, error) {
	if len(docs) == 0 {
		return nil, domain.Trainingf("empty corpus")
	}
	e.params = params
	e.buildVocab(docs)
	if len(e.vocab) == 0 {
		return nil, domain.Trainingf("no token occurs at least %d times; vocabulary is empty", params.MinCount)
	}

	dim := params.VectorSize
	rng := rand.New(rand.NewPCG(uint64(params.Seed), 0x9e3779b97f4a7c15))
	vectors := make([][]float64, len(docs))
	for i := range vectors {
		vectors[i] = randomVector(rng, dim)
	}
	e.out = make([][]float64, len(e.vocab))
	for i := range e.out {
		e.out[i] = make([]float64, dim)
	}

	ids := make([][]int, len(docs))
	total := 0
	for i, d := range docs {
		ids[i] = e.lookup(d.Tokens)
		total += len(ids[i])
	}
	total *= params.Epochs

	processed := 0
	neu1e := make([]float64, dim)
	for epoch := 0; epoch < params.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, di := range rng.Perm(len(docs)) {
			for _, w := range ids[di] {
				alpha := decay(params.Alpha, params.MinAlpha, processed, total)
				e.trainPair(rng, vectors[di], w, alpha, neu1e, true)
				processed++
			}
		}
	}
	e.prepared = true
	return vectors, nil
}

// Infer fits a vector for unseen tokens with the word weights frozen.
// Tokens outside the vocabulary are ignored; if none remain the zero vector is returned.
func (e *Embedder) Infer(ctx context.Context, tokens []string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("paragraph embedder not trained")
	}
	dim := e.params.VectorSize
	ids := e.lookup(tokens)
	if len(ids) == 0 {
		return make([]float64, dim), nil
	}
	epochs := e.params.InferEpochs
	if epochs <= 0 {
		epochs = e.params.Epochs
	}
	seed := textSeed(tokens)
	rng := rand.New(rand.NewPCG(uint64(e.params.Seed), seed))
	vec := randomVector(rng, dim)
	neu1e := make([]float64, dim)
	total := len(ids) * epochs
	processed := 0
	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, w := range ids {
			alpha := decay(e.params.Alpha, e.params.MinAlpha, processed, total)
			e.trainPair(rng, vec, w, alpha, neu1e, false)
			processed++
		}
	}
	return vec, nil
}

// trainPair runs one positive and params.Negative negative updates for (vec, word).
func (e *Embedder) trainPair(rng *rand.Rand, vec []float64, word int, alpha float64, neu1e []float64, learnOut bool) {
	for i := range neu1e {
		neu1e[i] = 0
	}
	for d := 0; d <= e.params.Negative; d++ {
		target, label := word, 1.0
		if d > 0 {
			target = e.sample(rng)
			if target == word {
				continue
			}
			label = 0
		}
		w := e.out[target]
		g := (label - sigmoid(vek.Dot(vec, w))) * alpha
		for i := range neu1e {
			neu1e[i] += g * w[i]
		}
		if learnOut {
			for i := range w {
				w[i] += g * vec[i]
			}
		}
	}
	for i := range vec {
		vec[i] += neu1e[i]
	}
}

func (e *Embedder) buildVocab(docs []domain.TaggedDocument) {
	freq := make(map[string]int)
	for _, d := range docs {
		for _, tok := range d.Tokens {
			freq[tok]++
		}
	}
	words := make([]string, 0, len(freq))
	for w, c := range freq {
		if c >= e.params.MinCount {
			words = append(words, w)
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] != freq[words[j]] {
			return freq[words[i]] > freq[words[j]]
		}
		return words[i] < words[j]
	})
	counts := make([]int, len(words))
	for i, w := range words {
		counts[i] = freq[w]
	}
	e.setVocab(words, counts)
}

func (e *Embedder) setVocab(words []string, counts []int) {
	e.vocab = words
	e.counts = counts
	e.index = make(map[string]int, len(words))
	e.cum = make([]float64, len(words))
	total := 0.0
	for i, w := range words {
		e.index[w] = i
		total += math.Pow(float64(counts[i]), 0.75)
		e.cum[i] = total
	}
}

func (e *Embedder) lookup(tokens []string) []int {
	ids := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if i, ok := e.index[tok]; ok {
			ids = append(ids, i)
		}
	}
	return ids
}

func (e *Embedder) sample(rng *rand.Rand) int {
	r := rng.Float64() * e.cum[len(e.cum)-1]
	i := sort.SearchFloat64s(e.cum, r)
	if i >= len(e.cum) {
		i = len(e.cum) - 1
	}
	return i
}

type snapshot struct {
	Params domain.Hyperparameters
	Vocab  []string
	Counts []int
	Out    [][]float64
}

// MarshalBinary encodes the hyperparameters, vocabulary and output weights.
func (e *Embedder) MarshalBinary() ([]byte, error) {
	if !e.prepared {
		return nil, errors.New("paragraph embedder not trained")
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{Params: e.params, Vocab: e.vocab, Counts: e.counts, Out: e.out})
	return buf.Bytes(), err
}

// UnmarshalBinary restores a model written by MarshalBinary.
func (e *Embedder) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	if len(s.Vocab) == 0 || len(s.Vocab) != len(s.Counts) || len(s.Vocab) != len(s.Out) {
		return errors.New("paragraph state: vocabulary and weights disagree")
	}
	for _, row := range s.Out {
		if len(row) != s.Params.VectorSize {
			return errors.New("paragraph state: weight row has wrong dimension")
		}
	}
	e.params = s.Params
	e.out = s.Out
	e.setVocab(s.Vocab, s.Counts)
	e.prepared = true
	return nil
}

func randomVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = (rng.Float64() - 0.5) / float64(dim)
	}
	return v
}

func decay(alpha, minAlpha float64, processed, total int) float64 {
	return alpha - (alpha-minAlpha)*float64(processed)/float64(total)
}

func textSeed(tokens []string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Join(tokens, " ")))
	return h.Sum64()
}

func sigmoid(x float64) float64 {
	switch {
	case x > 30:
		return 1
	case x < -30:
		return 0
	}
	return 1 / (1 + math.Exp(-x))
}
