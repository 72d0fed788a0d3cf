package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/meetnotes/internal/autotag"
	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/services"
	"github.com/streed/meetnotes/internal/store"
)

func newTestServer(t *testing.T) *NotesServer {
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
	svc := services.NewServices(cfg, store.NewJSONStore(path), embeddings.NewHashEmbedder(64),
		&autotag.KeywordTagger{MaxTags: 4})
	return NewNotesServer(cfg, svc, "test")
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", result.Content[0])
	return ""
}

func TestAddAndGetNote(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleAddNote(ctx, callTool(map[string]any{
		"content": "Meeting Summary: budget review for the quarterly planning",
		"tags":    "finance, planning",
	}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Note created successfully with ID: summary_")
	assert.Contains(t, text, "Tags: finance, planning")

	notes, err := s.services.Notes.List(10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 1)

	result, err = s.handleGetNote(ctx, callTool(map[string]any{"id": notes[0].ID}))
	require.NoError(t, err)
	text = resultText(t, result)
	assert.Contains(t, text, "Embedding: 64 dimensions")
	assert.Contains(t, text, "budget review")
}

func TestAddNoteRequiresContent(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleAddNote(context.Background(), callTool(map[string]any{}))
	assert.Error(t, err)
}

func TestGetNoteMissing(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleGetNote(context.Background(), callTool(map[string]any{"id": "summary_missing"}))
	assert.Error(t, err)
}

func TestListNotes(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	result, err := s.handleListNotes(ctx, callTool(nil))
	require.NoError(t, err)
	assert.Equal(t, "No notes found.", resultText(t, result))

	for _, content := range []string{"first standup notes", "second design review"} {
		_, err := s.handleAddNote(ctx, callTool(map[string]any{"content": content}))
		require.NoError(t, err)
	}

	result, err = s.handleListNotes(ctx, callTool(map[string]any{"limit": float64(1), "offset": float64(1)}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "Listing 1 notes (offset: 1)")
	assert.Contains(t, text, "second design review")
	assert.NotContains(t, text, "first standup")
}

func TestSimilarNotesAndBacklinks(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	for _, content := range []string{
		"budget review quarterly planning",
		"budget review quarterly planning finance",
	} {
		_, err := s.handleAddNote(ctx, callTool(map[string]any{"content": content}))
		require.NoError(t, err)
	}
	notes, err := s.services.Notes.List(10, 0)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	result, err := s.handleSimilarNotes(ctx, callTool(map[string]any{"id": notes[0].ID}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), notes[1].ID)

	result, err = s.handleSimilarNotes(ctx, callTool(map[string]any{"query": "quarterly budget review"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Found 2 similar notes")

	_, err = s.handleSimilarNotes(ctx, callTool(map[string]any{}))
	assert.Error(t, err)

	result, err = s.handleUpdateBacklinks(ctx, callTool(map[string]any{"dry_run": true}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "not saved")

	result, err = s.handleUpdateBacklinks(ctx, callTool(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "Updated backlinks for 2 of 2 notes")

	first, err := s.services.Notes.Get(notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{notes[1].ID}, first.Backlinks)
}

func TestSuggestTagsAndListTags(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddNote(ctx, callTool(map[string]any{
		"content": "Kubernetes migration. The kubernetes cluster upgrade slipped; kubernetes nodes need patching.",
	}))
	require.NoError(t, err)
	notes, err := s.services.Notes.List(1, 0)
	require.NoError(t, err)

	result, err := s.handleSuggestTags(ctx, callTool(map[string]any{"id": notes[0].ID, "apply": true}))
	require.NoError(t, err)
	text := resultText(t, result)
	assert.Contains(t, text, "kubernetes")
	assert.Contains(t, text, "Applied tags:")

	result, err = s.handleListTags(ctx, callTool(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "kubernetes (1)")

	_, err = s.handleSuggestTags(ctx, callTool(map[string]any{}))
	assert.Error(t, err)
}

func TestUpdateNoteTags(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAddNote(ctx, callTool(map[string]any{"content": "retro notes", "tags": "team"}))
	require.NoError(t, err)
	notes, err := s.services.Notes.List(1, 0)
	require.NoError(t, err)
	id := notes[0].ID

	result, err := s.handleUpdateNoteTags(ctx, callTool(map[string]any{"id": id, "tags": "retro, team"}))
	require.NoError(t, err)
	assert.Equal(t, "Tags for note "+id+": team, retro", resultText(t, result))

	result, err = s.handleUpdateNoteTags(ctx, callTool(map[string]any{"id": id, "tags": "q3", "overwrite": true}))
	require.NoError(t, err)
	assert.Equal(t, "Tags for note "+id+": q3", resultText(t, result))
}

func TestStatsResource(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleAddNote(context.Background(), callTool(map[string]any{"content": "weekly sync"}))
	require.NoError(t, err)

	var req mcp.ReadResourceRequest
	req.Params.URI = "notes://stats"
	contents, err := s.handleStats(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	var stats services.Stats
	require.NoError(t, json.Unmarshal([]byte(text.Text), &stats))
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Embedded)
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseTags(" a, ,b ,"))
	assert.Nil(t, parseTags(""))
}
