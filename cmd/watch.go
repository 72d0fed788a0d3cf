package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/services"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest summaries as they are written to a directory",
	Long: `Watch a directory (recursively) and add every new or changed .md or .txt
file as a meeting summary. Writes are debounced so an editor saving a file in
several steps produces a single note.

Example:
  meetnotes watch ~/meetings --debounce 2s`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchDebounce time.Duration
	watchTags     []string
	watchAutoTag  bool
)

var summaryExtensions = map[string]bool{".md": true, ".txt": true}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is ingested")
	watchCmd.Flags().StringSliceVarP(&watchTags, "tags", "T", []string{}, "Tags for every ingested note (comma-separated)")
	watchCmd.Flags().BoolVar(&watchAutoTag, "auto-tag", false, "Also apply suggested tags to each note")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := expandPath(args[0])
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	svc, err := getServices()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, dir); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ingest := func(path string) {
		if err := ingestFile(ctx, cmd, svc, path); err != nil {
			logger.Error("Failed to ingest %s: %v", path, err)
		}
	}
	d := newDebouncer(watchDebounce)
	defer d.stopAndWait()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for .md and .txt summaries. Press Ctrl+C to stop.\n", dir)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping watcher")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			logger.Debug("event received: %s", event)

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						logger.Warn("Failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSummaryFile(event.Name) {
				continue
			}
			d.add(event.Name, ingest)

		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("fsnotify error: %v", werr)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func isSummaryFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return summaryExtensions[strings.ToLower(filepath.Ext(base))]
}

func ingestFile(ctx context.Context, cmd *cobra.Command, svc *services.Services, path string) error {
	inputs, err := readInputs([]string{path}, watchTags)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return nil
	}
	if watchAutoTag {
		inputs[0].Tags = withSuggestedTags(cmd, svc, inputs[0].Text, inputs[0].Tags)
	}

	result, err := svc.Notes.AddMany(ctx, inputs)
	if err != nil {
		return err
	}
	if len(result.Added) == 0 {
		logger.Debug("%s already stored", path)
		return nil
	}

	note := result.Added[0]
	fmt.Fprintf(cmd.OutOrStdout(), "Added %s from %s (%d backlinks)\n", note.ID, path, len(note.Backlinks))
	return nil
}

// debouncer runs fn for a key once no new event for that key arrived within
// the delay.
type debouncer struct {
	delay  time.Duration
	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
	closed bool
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(key string, fn func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()

		fn(key)
	})
	d.timers[key] = t
}

// stopAndWait drops pending keys and waits for running callbacks.
func (d *debouncer) stopAndWait() {
	d.mu.Lock()
	d.closed = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
