package embedcache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type countingProvider struct {
	calls int
	err   error
}

func (p *countingProvider) Name() string { return "test/model" }

func (p *countingProvider) Embed(_ context.Context, text string) ([]float64, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return []float64{float64(len(text)), 0.5}, nil
}

func setupTestCache(t *testing.T) (*Cache, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "embeddings.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open cache: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, path
}

func TestOpen(t *testing.T) {
	_, path := setupTestCache(t)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("Cache file was not created")
	}
}

func TestGetPut(t *testing.T) {
	c, _ := setupTestCache(t)

	got, err := c.Get("m", "text")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected a miss, got %v", got)
	}

	want := []float64{0.1, -0.2, 3}
	if err := c.Put("m", "text", want); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err = c.Get("m", "text")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Get returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d = %v, want %v", i, got[i], want[i])
		}
	}

	if other, _ := c.Get("other-model", "text"); other != nil {
		t.Error("vectors must be keyed by model as well as text")
	}

	n, err := c.Count()
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}
}

func TestCachedProvider(t *testing.T) {
	c, _ := setupTestCache(t)
	inner := &countingProvider{}
	p := NewCachedProvider(inner, c)

	first, err := p.Embed(context.Background(), "Meeting Summary")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	second, err := p.Embed(context.Background(), "Meeting Summary")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner provider called %d times, want 1", inner.calls)
	}
	if first[0] != second[0] || first[1] != second[1] {
		t.Errorf("cached vector %v differs from computed %v", second, first)
	}
	if p.Name() != "test/model" {
		t.Errorf("Name() = %s", p.Name())
	}
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	c, _ := setupTestCache(t)
	inner := &countingProvider{err: errors.New("ollama down")}
	p := NewCachedProvider(inner, c)

	if _, err := p.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected the inner error")
	}
	if n, _ := c.Count(); n != 0 {
		t.Errorf("failed embedding was cached (%d rows)", n)
	}
}
