package tfidf

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"math"
	"sort"

	"bookrec/internal/domain"
)

// Name identifies this provider in configuration and model files.
const Name = "tfidf"

// Embedder implements a smoothed TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
// The vector size equals the vocabulary size; Hyperparameters.VectorSize is ignored.
type Embedder struct {
	vocabulary map[string]int
	terms      []string
	idf        []float64
	prepared   bool
	stopwords  map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary: make(map[string]int),
		stopwords:  defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return Name }

// Dimension returns the vocabulary size.
func (e *Embedder) Dimension() int { return len(e.terms) }

// Train builds the vocabulary and IDF values and returns one vector per document.
// Terms occurring fewer than params.MinCount times across the corpus are dropped.
func (e *Embedder) Train(ctx context.Context, docs []domain.TaggedDocument, params domain.Hyperparameters) ([][]float64, error) {
	if len(docs) == 0 {
		return nil, domain.Trainingf("empty corpus for TF-IDF")
	}
	// Build document frequencies and total counts
	df := make(map[string]int)
	total := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]struct{})
		for _, tok := range d.Tokens {
			if _, isStop := e.stopwords[tok]; isStop {
				continue
			}
			total[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		if total[term] >= params.MinCount {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return nil, domain.Trainingf("no term occurs at least %d times; vocabulary is empty", params.MinCount)
	}
	idf := make([]float64, len(terms))
	n := float64(len(docs))
	for i, term := range terms {
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.setState(terms, idf)

	vectors := make([][]float64, len(docs))
	for i, d := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(d.Tokens)
	}
	return vectors, nil
}

// Infer returns the L2-normalized TF-IDF vector of tokens.
func (e *Embedder) Infer(_ context.Context, tokens []string) ([]float64, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	return e.embed(tokens), nil
}

func (e *Embedder) embed(tokens []string) []float64 {
	vec := make([]float64, len(e.terms))
	tf := make(map[int]int)
	count := 0
	for _, tok := range tokens {
		if _, isStop := e.stopwords[tok]; isStop {
			continue
		}
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			count++
		}
	}
	if count == 0 {
		return vec
	}
	for idx, c := range tf {
		vec[idx] = float64(c) / float64(count) * e.idf[idx]
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func (e *Embedder) setState(terms []string, idf []float64) {
	e.terms = terms
	e.idf = idf
	e.vocabulary = make(map[string]int, len(terms))
	for i, t := range terms {
		e.vocabulary[t] = i
	}
	e.prepared = true
}

type snapshot struct {
	Terms []string
	IDF   []float64
}

// MarshalBinary encodes the vocabulary and IDF table.
func (e *Embedder) MarshalBinary() ([]byte, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{Terms: e.terms, IDF: e.idf})
	return buf.Bytes(), err
}

// UnmarshalBinary restores state written by MarshalBinary.
func (e *Embedder) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	if len(s.Terms) == 0 || len(s.Terms) != len(s.IDF) {
		return errors.New("tfidf state: vocabulary and idf disagree")
	}
	e.setState(s.Terms, s.IDF)
	return nil
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
