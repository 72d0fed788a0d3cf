package services

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/meetnotes/internal/backlinks"
	"github.com/streed/meetnotes/internal/config"
	apperrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/store"
)

// angleEmbedder maps known texts to 2D unit vectors at fixed angles.
type angleEmbedder struct {
	angles map[string]float64
	err    error
}

func (e *angleEmbedder) Name() string { return "test/angles" }

func (e *angleEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.err != nil {
		return nil, e.err
	}
	deg, ok := e.angles[text]
	if !ok {
		deg = 90
	}
	rad := deg * math.Pi / 180
	return []float64{math.Cos(rad), math.Sin(rad)}, nil
}

type fixedTagger struct {
	tags []string
}

func (f *fixedTagger) SuggestTags(context.Context, string) ([]string, error) {
	return f.tags, nil
}

func newTestServices(t *testing.T, tagger *fixedTagger) (*Services, *store.JSONStore) {
	t.Helper()
	st := store.NewJSONStore(filepath.Join(t.TempDir(), "db.json"))
	cfg := &config.Config{
		BacklinkThreshold: 0.7,
		BacklinkLimit:     3,
		AutoBacklinks:     true,
		MaxAutoTags:       4,
	}
	embedder := &angleEmbedder{angles: map[string]float64{"one": 0, "two": 40, "three": 70}}
	if tagger == nil {
		return NewServices(cfg, st, embedder, nil), st
	}
	return NewServices(cfg, st, embedder, tagger), st
}

func TestAddRunsBacklinkPass(t *testing.T) {
	svc, st := newTestServices(t, nil)
	ctx := context.Background()

	n1, err := svc.Notes.Add(ctx, "one", []string{"trading"})
	require.NoError(t, err)
	assert.Empty(t, n1.Backlinks)
	assert.Equal(t, []string{"trading"}, n1.Tags)

	n2, err := svc.Notes.Add(ctx, "two", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{n1.ID}, n2.Backlinks)

	n3, err := svc.Notes.Add(ctx, "three", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{n2.ID}, n3.Backlinks)

	notes, err := st.Load()
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, []string{n2.ID}, notes[0].Backlinks)
	assert.Equal(t, []string{n3.ID, n1.ID}, notes[1].Backlinks)
	assert.Equal(t, []string{n2.ID}, notes[2].Backlinks)
}

func TestAddValidation(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	ctx := context.Background()

	_, err := svc.Notes.Add(ctx, "   ", nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptyContent)

	_, err = svc.Notes.Add(ctx, "one", nil)
	require.NoError(t, err)
	_, err = svc.Notes.Add(ctx, "one", nil)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateNote)
}

func TestAddEmbeddingFailureWritesNothing(t *testing.T) {
	st := store.NewJSONStore(filepath.Join(t.TempDir(), "db.json"))
	notes := NewNotesService(st, &angleEmbedder{err: errors.New("ollama down")}, backlinks.NewUpdater(0.7, 3), true)

	_, err := notes.Add(context.Background(), "one", nil)
	require.Error(t, err)

	stored, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestAddManySingleSaveAndSkips(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	ctx := context.Background()

	result, err := svc.Notes.AddMany(ctx, []NoteInput{
		{Text: "one", Source: "a.md"},
		{Text: "two", Source: "b.md"},
		{Text: "", Source: "empty.md"},
		{Text: "two", Source: "copy.md"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Added, 2)
	assert.Equal(t, 2, result.Skipped)

	again, err := svc.Notes.AddMany(ctx, []NoteInput{{Text: "one"}, {Text: "three"}})
	require.NoError(t, err)
	require.Len(t, again.Added, 1)
	assert.Equal(t, "three", again.Added[0].Text)
	assert.Equal(t, 1, again.Skipped)
}

func TestListAndGet(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		n, err := svc.Notes.Add(ctx, text, nil)
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	all, err := svc.Notes.List(0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := svc.Notes.List(1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	past, err := svc.Notes.List(10, 5)
	require.NoError(t, err)
	assert.Empty(t, past)

	got, err := svc.Notes.Get(ids[2])
	require.NoError(t, err)
	assert.Equal(t, "three", got.Text)

	_, err = svc.Notes.Get("summary_missing")
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
	_, err = svc.Notes.Get("")
	assert.ErrorIs(t, err, apperrors.ErrInvalidNoteID)
}

func TestSimilar(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	ctx := context.Background()

	n1, _ := svc.Notes.Add(ctx, "one", nil)
	n2, _ := svc.Notes.Add(ctx, "two", nil)
	n3, _ := svc.Notes.Add(ctx, "three", nil)

	similar, err := svc.Notes.Similar(n2.ID, 0.7, 3)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	assert.Equal(t, n3.ID, similar[0].Note.ID)
	assert.Equal(t, n1.ID, similar[1].Note.ID)
	assert.InDelta(t, math.Cos(30*math.Pi/180), similar[0].Score, 1e-9)

	loose, err := svc.Notes.Similar(n1.ID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, loose, 2)

	byText, err := svc.Notes.SimilarToText(ctx, "one", 0.7, 3)
	require.NoError(t, err)
	require.NotEmpty(t, byText)
	assert.Equal(t, n1.ID, byText[0].Note.ID)

	_, err = svc.Notes.Similar("nope", 0.7, 3)
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
}

func TestRefreshAndPreviewBacklinks(t *testing.T) {
	st := store.NewJSONStore(filepath.Join(t.TempDir(), "db.json"))
	embedder := &angleEmbedder{angles: map[string]float64{"one": 0, "two": 40, "three": 70}}
	notes := NewNotesService(st, embedder, backlinks.NewUpdater(0.7, 3), false)
	ctx := context.Background()

	for _, text := range []string{"one", "two", "three"} {
		_, err := notes.Add(ctx, text, nil)
		require.NoError(t, err)
	}

	stored, err := st.Load()
	require.NoError(t, err)
	for _, n := range stored {
		assert.Empty(t, n.Backlinks, "auto backlinks are disabled")
	}

	plan, err := notes.PreviewBacklinks()
	require.NoError(t, err)
	assert.Len(t, plan, 3)
	stored, _ = st.Load()
	assert.Empty(t, stored[1].Backlinks, "preview must not write")

	result, err := notes.RefreshBacklinks()
	require.NoError(t, err)
	assert.Equal(t, 3, result.Changed)

	stored, err = st.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{stored[2].ID, stored[0].ID}, stored[1].Backlinks)
}

func TestApplyTags(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	ctx := context.Background()
	n, err := svc.Notes.Add(ctx, "one", []string{"arbitrage"})
	require.NoError(t, err)

	merged, err := svc.Notes.ApplyTags(n.ID, []string{"trading", "arbitrage"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"arbitrage", "trading"}, merged.Tags)

	replaced, err := svc.Notes.ApplyTags(n.ID, []string{"risk"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"risk"}, replaced.Tags)

	_, err = svc.Notes.ApplyTags("missing", []string{"x"}, false)
	assert.ErrorIs(t, err, apperrors.ErrNoteNotFound)
}

func TestStatsAndGraph(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	ctx := context.Background()
	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Notes.Add(ctx, text, []string{"shared"})
		require.NoError(t, err)
	}

	stats, err := svc.Notes.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Embedded)
	assert.Equal(t, 3, stats.WithBacklinks)
	assert.Equal(t, 4, stats.BacklinkEdges)
	assert.Equal(t, []int{2}, stats.Dimensions)
	assert.Equal(t, 1, stats.Tags)
	assert.Equal(t, "test/angles", stats.Embedder)
	assert.Empty(t, stats.Warnings)

	graph, err := svc.Notes.Graph()
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.Edges, 4)
}

func TestTagsService(t *testing.T) {
	svc, _ := newTestServices(t, &fixedTagger{tags: []string{"Overview", "Arbitrage", "Backtesting"}})
	ctx := context.Background()
	n, err := svc.Notes.Add(ctx, "one", nil)
	require.NoError(t, err)

	suggested, err := svc.Tags.SuggestForNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"arbitrage", "backtesting"}, suggested)

	results, err := svc.Tags.AutoTag(ctx, []string{n.ID, "missing"}, true, false)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	got, err := svc.Notes.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"arbitrage", "backtesting"}, got.Tags)

	all, err := svc.Tags.GetAll()
	require.NoError(t, err)
	assert.Equal(t, []TagCount{{Name: "arbitrage", Notes: 1}, {Name: "backtesting", Notes: 1}}, all)
}

func TestTagsServiceDisabled(t *testing.T) {
	svc, _ := newTestServices(t, nil)
	assert.False(t, svc.Tags.IsAvailable())

	_, err := svc.Tags.SuggestForText(context.Background(), "text")
	assert.ErrorIs(t, err, apperrors.ErrTaggingDisabled)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	svc, st := newTestServices(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Notes.Add(ctx, string(rune('a'+i)), nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	notes, err := st.Load()
	require.NoError(t, err)
	assert.Len(t, notes, 20)
}
