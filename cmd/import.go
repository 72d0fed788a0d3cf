package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/constants"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/services"
)

var importCmd = &cobra.Command{
	Use:   "import <pattern>...",
	Short: "Import meeting summaries from files",
	Long: `Import every file matching the given patterns as a meeting summary.

Patterns support ** for recursive matching. All matched files are embedded
first and then added with a single write of the store, so backlinks are
recomputed once for the whole batch. Files whose text is already stored are
skipped.

Examples:
  meetnotes import summaries/*.md
  meetnotes import 'archive/**/*.txt' --tags archive
  meetnotes import 'meetings/**/*.{md,txt}' --auto-tag`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

var (
	importTags    []string
	importAutoTag bool
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringSliceVarP(&importTags, "tags", "T", []string{}, "Tags for every imported note (comma-separated)")
	importCmd.Flags().BoolVar(&importAutoTag, "auto-tag", false, "Also apply suggested tags to each note")
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No files matched.")
		return nil
	}

	svc, err := getServices()
	if err != nil {
		return err
	}

	inputs, err := readInputs(files, importTags)
	if err != nil {
		return err
	}
	if importAutoTag {
		for i := range inputs {
			inputs[i].Tags = withSuggestedTags(cmd, svc, inputs[i].Text, inputs[i].Tags)
		}
	}

	result, err := svc.Notes.AddMany(cmd.Context(), inputs)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %d notes from %d files (%d skipped)\n", len(result.Added), len(files), result.Skipped)
	for _, note := range result.Added {
		fmt.Fprintf(out, "  %s  %d backlinks  %s\n", note.ID, len(note.Backlinks), note.Preview(constants.ShortPreviewLength))
	}
	return nil
}

// collectFiles expands the patterns into a sorted, de-duplicated list of
// regular files.
func collectFiles(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			abs, err := filepath.Abs(match)
			if err != nil {
				abs = match
			}
			if !seen[abs] {
				seen[abs] = true
				files = append(files, abs)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

func readInputs(files []string, tags []string) ([]services.NoteInput, error) {
	inputs := make([]services.NoteInput, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			logger.Warn("Skipping empty file %s", file)
			continue
		}
		inputs = append(inputs, services.NoteInput{
			Text:   text,
			Tags:   tags,
			Source: file,
		})
	}
	return inputs, nil
}
