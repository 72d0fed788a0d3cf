package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/services"
	"github.com/streed/meetnotes/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) (http.Handler, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	cfg := &config.Config{
		StorePath:         path,
		EmbeddingProvider: config.ProviderHash,
		BacklinkThreshold: 0.3,
		BacklinkLimit:     3,
		AutoBacklinks:     true,
		MaxAutoTags:       4,
	}
	svc := services.NewServices(cfg, store.NewJSONStore(path), embeddings.NewHashEmbedder(64), nil)
	return NewAPIServer(cfg, svc).Handler(), path
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestReceiveData(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "POST", "/receive-data", map[string]string{"content": "Meeting Summary: arbitrage"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp embeddings.ReceiveDataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Meeting Summary: arbitrage", resp.Content)
	assert.Len(t, resp.Embedding, 64)

	rec = do(t, h, "POST", "/receive-data", map[string]string{"text": "wrong field"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No 'content' field in JSON data")
}

func TestCreateGetAndListNotes(t *testing.T) {
	h, path := newTestServer(t)

	rec := do(t, h, "POST", "/api/v1/notes", CreateNoteRequest{Content: "arbitrage model for index basket trading", Tags: "trading, arbitrage"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decode(t, rec)
	assert.True(t, env.Success)

	var created struct {
		ID   string   `json:"id"`
		Tags []string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, []string{"trading", "arbitrage"}, created.Tags)

	_, err := os.Stat(path)
	require.NoError(t, err, "store file should be written")

	rec = do(t, h, "GET", "/api/v1/notes/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/notes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.Len(t, list, 1)

	rec = do(t, h, "GET", "/api/v1/notes/summary_missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode(t, rec).Success)

	rec = do(t, h, "POST", "/api/v1/notes", CreateNoteRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "GET", "/api/v1/notes?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSimilarBacklinksAndGraph(t *testing.T) {
	h, _ := newTestServer(t)

	var ids []string
	for _, text := range []string{
		"arbitrage model for index basket trading",
		"backtesting the arbitrage model for index basket trading",
		"sentiment analysis for customer support tickets",
	} {
		rec := do(t, h, "POST", "/api/v1/notes", CreateNoteRequest{Content: text})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var n struct {
			ID string `json:"id"`
		}
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &n))
		ids = append(ids, n.ID)
	}

	rec := do(t, h, "GET", "/api/v1/notes/"+ids[0]+"/similar?threshold=0.5&limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var similar []services.SimilarNote
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &similar))
	require.NotEmpty(t, similar)
	assert.Equal(t, ids[1], similar[0].Note.ID)

	rec = do(t, h, "GET", "/api/v1/notes/"+ids[0]+"/similar?threshold=high", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/v1/backlinks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Total    int `json:"total"`
		Embedded int `json:"embedded"`
		Changed  int `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &result))
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 0, result.Changed, "notes were already linked on add")

	rec = do(t, h, "POST", "/api/v1/backlinks?dry_run=true", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "GET", "/api/v1/graph", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var graph services.Graph
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &graph))
	assert.Len(t, graph.Nodes, 3)
	assert.NotEmpty(t, graph.Edges)
}

func TestEmbedStatsHealth(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "POST", "/api/v1/embed", EmbedRequest{Content: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"dimensions":64`)

	rec = do(t, h, "GET", "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"total":0`)

	rec = do(t, h, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"status":"ok"`)
}

func TestCorruptStoreIsServerError(t *testing.T) {
	h, path := newTestServer(t)
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0644))

	rec := do(t, h, "GET", "/api/v1/notes", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, h, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAutoTagDisabled(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, "POST", "/api/v1/auto-tag/apply", AutoTagRequest{NoteIDs: []string{"x"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/notes", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
