package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
)

// OllamaEmbedder calls the /api/embed endpoint of an Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

func NewOllamaEmbedder(endpoint, model string) (*OllamaEmbedder, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama endpoint %q: %w", endpoint, err)
	}

	return &OllamaEmbedder{
		client: api.NewClient(base, &http.Client{Timeout: 60 * time.Second}),
		model:  model,
	}, nil
}

func (e *OllamaEmbedder) Name() string {
	return "ollama/" + e.model
}

// formatTextForNomic adds the document prefix Nomic models expect.
// See: https://docs.nomic.ai/reference/endpoints/nomic-embed-text
func (e *OllamaEmbedder) formatTextForNomic(text string) string {
	if !strings.Contains(strings.ToLower(e.model), "nomic") {
		return text
	}
	return "search_document: " + text
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	start := time.Now()
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: e.formatTextForNomic(text),
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed request failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, apperrors.ErrEmptyEmbedding
	}

	logger.Debug("Got %d-dimension embedding from ollama in %v", len(resp.Embeddings[0]), time.Since(start))
	return toFloat64(resp.Embeddings[0]), nil
}
