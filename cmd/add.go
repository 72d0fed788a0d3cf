package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/constants"
	interrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/models"
	"github.com/streed/meetnotes/internal/services"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a meeting summary",
	Long: `Add a meeting summary. It is embedded, stored and, unless auto-backlinks is
disabled, the backlinks of every note are recomputed.

Text can be provided in several ways:
1. Via --text flag: meetnotes add --text "Meeting Summary: ..."
2. Via --file flag:  meetnotes add --file summary.md
3. Via stdin:        cat summary.md | meetnotes add`,
	RunE: runAdd,
}

var (
	addText    string
	addFile    string
	addTags    []string
	addAutoTag bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().StringVarP(&addText, "text", "c", "", "Summary text")
	addCmd.Flags().StringVarP(&addFile, "file", "f", "", "Read the summary from a file")
	addCmd.Flags().StringSliceVarP(&addTags, "tags", "T", []string{}, "Tags for the note (comma-separated)")
	addCmd.Flags().BoolVar(&addAutoTag, "auto-tag", false, "Also apply suggested tags")
}

func runAdd(cmd *cobra.Command, args []string) error {
	text, err := readSummaryText(cmd.InOrStdin(), addText, addFile)
	if err != nil {
		return err
	}

	svc, err := getServices()
	if err != nil {
		return err
	}

	tags := addTags
	if addAutoTag {
		tags = withSuggestedTags(cmd, svc, text, tags)
	}

	note, err := svc.Notes.Add(cmd.Context(), text, tags)
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Note created successfully!\n")
	printNote(out, note, false)
	return nil
}

// readSummaryText picks the summary from the flag, the file or piped stdin,
// in that order.
func readSummaryText(stdin io.Reader, text, file string) (string, error) {
	switch {
	case text != "":
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		text = string(data)
	default:
		if f, ok := stdin.(*os.File); ok {
			if stat, err := f.Stat(); err == nil && stat.Mode()&os.ModeCharDevice != 0 {
				return "", fmt.Errorf("%w: pass --text, --file or pipe the summary on stdin", interrors.ErrEmptyContent)
			}
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", interrors.ErrEmptyContent
	}
	return text, nil
}

func withSuggestedTags(cmd *cobra.Command, svc *services.Services, text string, tags []string) []string {
	if !svc.Tags.IsAvailable() {
		fmt.Fprintln(cmd.ErrOrStderr(), "Auto-tagging unavailable. Enable it with: meetnotes config set enable-auto-tagging true")
		return tags
	}

	suggested, err := svc.Tags.SuggestForText(cmd.Context(), text)
	if err != nil {
		logger.Warn("Auto-tagging failed: %v", err)
		return tags
	}
	if len(suggested) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Auto-generated tags: %s\n", strings.Join(suggested, ", "))
	}
	return models.MergeTags(tags, suggested)
}

func printNote(out io.Writer, note *models.Note, full bool) {
	fmt.Fprintf(out, "ID: %s\n", note.ID)
	if len(note.Tags) > 0 {
		fmt.Fprintf(out, "Tags: %s\n", strings.Join(note.Tags, ", "))
	}
	if note.HasEmbedding() {
		fmt.Fprintf(out, "Embedding: %d dimensions\n", len(note.Embedding))
	} else {
		fmt.Fprintln(out, "Embedding: none")
	}
	if len(note.Backlinks) > 0 {
		fmt.Fprintf(out, "Backlinks: %s\n", strings.Join(note.Backlinks, ", "))
	} else {
		fmt.Fprintln(out, "Backlinks: none")
	}
	if full {
		fmt.Fprintf(out, "\n%s\n", note.Text)
	} else {
		fmt.Fprintf(out, "Preview: %s\n", note.Preview(constants.PreviewLength))
	}
}
