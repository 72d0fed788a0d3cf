package embeddings

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/constants"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
)

// Provider turns note text into an embedding vector.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Name identifies the embedding space, e.g. "ollama/all-minilm".
	Name() string
}

// NewProvider builds the provider selected by cfg.EmbeddingProvider. There is
// no fallback between providers: vectors from different models are not
// comparable.
func NewProvider(cfg *config.Config) (Provider, error) {
	var (
		p   Provider
		err error
	)

	switch strings.ToLower(cfg.EmbeddingProvider) {
	case config.ProviderOllama, "":
		p, err = NewOllamaEmbedder(cfg.OllamaEndpoint, cfg.EmbeddingModel)
	case config.ProviderOpenAI:
		p, err = NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel)
	case config.ProviderRemote:
		p = NewRemoteEmbedder(cfg.RemoteEmbedURL)
	case config.ProviderHash:
		p = NewHashEmbedder(cfg.VectorDimensions)
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownProvider, cfg.EmbeddingProvider)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Using embedding provider %s", p.Name())
	if cfg.VectorDimensions > 0 {
		return WithDimensions(p, cfg.VectorDimensions), nil
	}
	return p, nil
}

type dimensionChecked struct {
	Provider
	dims int
}

// WithDimensions rejects vectors whose length differs from dims.
func WithDimensions(p Provider, dims int) Provider {
	return &dimensionChecked{Provider: p, dims: dims}
}

func (d *dimensionChecked) Embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := d.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != d.dims {
		logger.Error("Dimension mismatch: %s returned %d dimensions but config expects %d", d.Name(), len(vec), d.dims)
		return nil, &apperrors.DimensionMismatchError{Want: d.dims, Got: len(vec)}
	}
	return vec, nil
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// EmbeddingToBytes encodes a vector as little-endian float64 values.
func EmbeddingToBytes(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*constants.BytesPerFloat64)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*constants.BytesPerFloat64:], math.Float64bits(v))
	}
	return buf
}

func BytesToEmbedding(data []byte) ([]float64, error) {
	if len(data)%constants.BytesPerFloat64 != 0 {
		return nil, apperrors.ErrInvalidEmbeddingLength
	}

	embedding := make([]float64, len(data)/constants.BytesPerFloat64)
	for i := range embedding {
		embedding[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*constants.BytesPerFloat64:]))
	}
	return embedding, nil
}
