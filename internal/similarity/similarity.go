// Package similarity ranks notes by cosine similarity of their embeddings.
package similarity

import (
	"math"
	"sort"

	"github.com/streed/meetnotes/internal/constants"
	apperrors "github.com/streed/meetnotes/internal/errors"
)

const (
	DefaultThreshold = constants.DefaultBacklinkThreshold
	DefaultLimit     = constants.DefaultBacklinkLimit
)

// Candidate is a note id paired with its embedding.
type Candidate struct {
	ID        string
	Embedding []float64
}

type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|), or 0 when either vector has
// zero magnitude or the score is not a finite number.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &apperrors.DimensionMismatchError{Want: len(a), Got: len(b)}
	}
	score, _ := cosine(a, b)
	return score, nil
}

// cosine reports ok=false when a magnitude is zero or the score is not
// finite. When the plain sums overflow or underflow, each vector is scaled by
// its largest component and the sums are taken again.
func cosine(a, b []float64) (float64, bool) {
	if score, ok := cosineScaled(a, b, 1, 1); ok {
		return score, true
	}
	scaleA, scaleB := maxAbs(a), maxAbs(b)
	if scaleA == 0 || scaleB == 0 || math.IsInf(scaleA, 0) || math.IsInf(scaleB, 0) {
		return 0, false
	}
	return cosineScaled(a, b, scaleA, scaleB)
}

func cosineScaled(a, b []float64, scaleA, scaleB float64) (float64, bool) {
	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/scaleA, b[i]/scaleB
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 || math.IsInf(normA, 0) || math.IsInf(normB, 0) {
		return 0, false
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	return score, true
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if ax := math.Abs(x); ax > m {
			m = ax
		}
	}
	return m
}

// FindTopMatches returns up to limit candidates whose similarity to the
// reference is at least threshold, best first. The candidate carrying
// referenceID is skipped. Equal scores keep their input order.
func FindTopMatches(referenceID string, reference []float64, candidates []Candidate, threshold float64, limit int) ([]Match, error) {
	matches := []Match{}
	if limit <= 0 {
		return matches, nil
	}

	for _, c := range candidates {
		if c.ID == referenceID {
			continue
		}
		if len(c.Embedding) != len(reference) {
			return nil, &apperrors.DimensionMismatchError{
				ReferenceID: referenceID,
				CandidateID: c.ID,
				Want:        len(reference),
				Got:         len(c.Embedding),
			}
		}
		score, ok := cosine(reference, c.Embedding)
		if !ok || score < threshold {
			continue
		}
		matches = append(matches, Match{ID: c.ID, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// IDs returns the ids of matches in order.
func IDs(matches []Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return ids
}
