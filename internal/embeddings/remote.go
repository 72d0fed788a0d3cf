package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
)

// ReceiveDataRequest is the body of POST /receive-data.
type ReceiveDataRequest struct {
	Content string `json:"content"`
}

type ReceiveDataResponse struct {
	Content   string    `json:"content"`
	Embedding []float64 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// RemoteEmbedder delegates embedding to another meetnotes server through its
// /receive-data endpoint.
type RemoteEmbedder struct {
	url        string
	httpClient *http.Client
}

func NewRemoteEmbedder(url string) *RemoteEmbedder {
	return &RemoteEmbedder{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (e *RemoteEmbedder) Name() string {
	return "remote/" + e.url
}

func (e *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	jsonData, err := json.Marshal(ReceiveDataRequest{Content: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Debug("Requesting embedding from %s", e.url)
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send embed request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Debug("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp ReceiveDataResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("remote embed failed with status %d: %s", resp.StatusCode, errResp.Error)
		}
		return nil, fmt.Errorf("remote embed failed with status %d: %s", resp.StatusCode, string(body))
	}

	var out ReceiveDataResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, apperrors.ErrEmptyEmbedding
	}
	return out.Embedding, nil
}
