package embeddings

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/streed/meetnotes/internal/constants"
)

// HashEmbedder derives a deterministic bag-of-words vector from the text. It
// needs no model and is meant for offline use and tests; scores only reflect
// shared words.
type HashEmbedder struct {
	dims int
}

func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = constants.DefaultDimension
	}
	return &HashEmbedder{dims: dims}
}

func (e *HashEmbedder) Name() string {
	return fmt.Sprintf("hash/%d", e.dims)
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	embedding := make([]float64, e.dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]{}\"'")
		if word == "" {
			continue
		}
		hash := hashString(word)
		embedding[hash%uint32(e.dims)] += 1 + float64(hash%constants.HashModulo)/constants.HashModulo
	}

	var sum float64
	for _, v := range embedding {
		sum += v * v
	}
	if sum > 0 {
		norm := 1 / math.Sqrt(sum)
		for i := range embedding {
			embedding[i] *= norm
		}
	}
	return embedding, nil
}

func hashString(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = h*constants.HashMultiplier + uint32(c)
	}
	return h
}
