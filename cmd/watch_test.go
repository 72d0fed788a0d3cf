package cmd

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streed/meetnotes/internal/store"
)

func TestIsSummaryFile(t *testing.T) {
	tests := map[string]bool{
		"notes/standup.md":  true,
		"notes/standup.MD":  true,
		"notes/retro.txt":   true,
		"notes/.hidden.md":  false,
		"notes/draft.md~":   false,
		"notes/export.json": false,
		"notes/README":      false,
	}
	for path, want := range tests {
		assert.Equal(t, want, isSummaryFile(path), path)
	}
}

func TestDebouncerCoalescesEvents(t *testing.T) {
	d := newDebouncer(100 * time.Millisecond)

	var mu sync.Mutex
	calls := map[string]int{}
	fn := func(key string) {
		mu.Lock()
		calls[key]++
		mu.Unlock()
	}

	for i := 0; i < 5; i++ {
		d.add("a.md", fn)
		time.Sleep(5 * time.Millisecond)
	}
	d.add("b.md", fn)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls["a.md"] == 1 && calls["b.md"] == 1
	}, 2*time.Second, 10*time.Millisecond)

	d.stopAndWait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls["a.md"])
}

func TestDebouncerStopDropsPending(t *testing.T) {
	d := newDebouncer(time.Hour)
	called := false
	d.add("a.md", func(string) { called = true })
	d.stopAndWait()
	d.add("b.md", func(string) { called = true })
	assert.False(t, called)
}

func TestIngestFile(t *testing.T) {
	storePath := useTestServices(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "standup.md")
	writeFile(t, path, "Meeting Summary: standup, deploy blocked on review")

	cmd, out := testCommand()
	watchTags, watchAutoTag = []string{"standup"}, false

	require.NoError(t, ingestFile(context.Background(), cmd, appServices, path))
	assert.Contains(t, out.String(), "Added summary_")

	// the same text again is not stored twice
	require.NoError(t, ingestFile(context.Background(), cmd, appServices, path))

	notes, err := store.NewJSONStore(storePath).Load()
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, []string{"standup"}, notes[0].Tags)
}
