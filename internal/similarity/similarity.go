// Package similarity computes cosine correlations between embedding vectors and ranks them.
package similarity

import (
	"sort"

	"github.com/viterin/vek"
)

// DefaultK is the number of neighbours returned when the caller does not ask for a count.
const DefaultK = 10

// Cosine returns dot(u, v) / (|u| |v|). ok is false when the vectors differ in length
// or either norm is zero; the score is then 0.
func Cosine(u, v []float64) (score float64, ok bool) {
	if len(u) != len(v) || len(u) == 0 {
		return 0, false
	}
	nu, nv := vek.Norm(u), vek.Norm(v)
	if nu == 0 || nv == 0 {
		return 0, false
	}
	s := vek.Dot(u, v) / (nu * nv)
	// rounding can push parallel vectors just outside [-1, 1]
	switch {
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return s, true
}

// Candidate is one ranked vector.
type Candidate struct {
	Index int
	Score float64
	// Degenerate marks a zero-norm pair; it scores 0 and ranks after every other candidate.
	Degenerate bool
}

// TopK ranks vectors by cosine similarity to query and returns at most k candidates.
// Indexes for which skip returns true are left out. Equal scores keep the order of vectors.
// k <= 0 selects DefaultK.
func TopK(query []float64, vectors [][]float64, k int, skip func(i int) bool) []Candidate {
	if k <= 0 {
		k = DefaultK
	}
	cands := make([]Candidate, 0, len(vectors))
	for i, v := range vectors {
		if skip != nil && skip(i) {
			continue
		}
		score, ok := Cosine(query, v)
		cands = append(cands, Candidate{Index: i, Score: score, Degenerate: !ok})
	}
	Sort(cands)
	if k < len(cands) {
		cands = cands[:k]
	}
	return cands
}

// Sort orders candidates by descending score with degenerate pairs last.
// The sort is stable, so ties keep their incoming order.
func Sort(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.Degenerate != b.Degenerate {
			return !a.Degenerate
		}
		return a.Score > b.Score
	})
}
