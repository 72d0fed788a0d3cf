package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var autoTagCmd = &cobra.Command{
	Use:   "auto-tag [ids...]",
	Short: "Suggest or apply tags for notes",
	Long: `Analyze note text and suggest topic tags. With an Ollama provider the tags
come from the configured auto-tag model; with the offline hash provider they
are picked from frequent keywords.

Examples:
  meetnotes auto-tag summary_0b6f...            # Suggest tags for one note
  meetnotes auto-tag --all                      # Suggest tags for every note
  meetnotes auto-tag --all --apply              # Merge suggestions into every note
  meetnotes auto-tag --apply --overwrite ID     # Replace the tags of one note`,
	RunE: runAutoTag,
}

var (
	autoTagApply     bool
	autoTagAll       bool
	autoTagOverwrite bool
)

func init() {
	rootCmd.AddCommand(autoTagCmd)
	autoTagCmd.Flags().BoolVar(&autoTagApply, "apply", false, "Store the suggested tags")
	autoTagCmd.Flags().BoolVar(&autoTagAll, "all", false, "Process every note")
	autoTagCmd.Flags().BoolVar(&autoTagOverwrite, "overwrite", false, "Replace existing tags (default: merge with existing)")
}

func runAutoTag(cmd *cobra.Command, args []string) error {
	if !autoTagAll && len(args) == 0 {
		return fmt.Errorf("pass note ids or --all")
	}

	svc, err := getServices()
	if err != nil {
		return err
	}
	if !svc.Tags.IsAvailable() {
		return fmt.Errorf("auto-tagging is not available. Please ensure:\n" +
			"1. Auto-tagging is enabled (meetnotes config set enable-auto-tagging true)\n" +
			"2. Ollama is running and the auto-tag model is installed")
	}

	ids := args
	if autoTagAll {
		notes, err := svc.Notes.List(0, 0)
		if err != nil {
			return fmt.Errorf("failed to load notes: %w", err)
		}
		ids = make([]string, len(notes))
		for i, n := range notes {
			ids[i] = n.ID
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Processing %d notes...\n\n", len(ids))

	results, err := svc.Tags.AutoTag(cmd.Context(), ids, autoTagApply, autoTagOverwrite)
	for _, id := range ids {
		tags, ok := results[id]
		if !ok {
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", id, strings.Join(tags, ", "))
	}
	if err != nil {
		return err
	}

	if autoTagApply {
		fmt.Fprintf(out, "\nTagged %d of %d notes.\n", len(results), len(ids))
	} else {
		fmt.Fprintln(out, "\nRun with --apply to store these tags.")
	}
	return nil
}
