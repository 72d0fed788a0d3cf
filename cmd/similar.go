package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/constants"
	interrors "github.com/streed/meetnotes/internal/errors"
	"github.com/streed/meetnotes/internal/services"
)

var similarCmd = &cobra.Command{
	Use:   "similar [id]",
	Short: "Show the notes most similar to a note or to some text",
	Long: `Rank stored notes by cosine similarity against a stored note, or against
arbitrary text given with --query. Nothing is written.

Examples:
  meetnotes similar summary_0b6f...
  meetnotes similar --query "quarterly budget" --threshold 0.5 --limit 10`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimilar,
}

var (
	similarQuery     string
	similarThreshold float64
	similarLimit     int
)

func init() {
	rootCmd.AddCommand(similarCmd)
	similarCmd.Flags().StringVarP(&similarQuery, "query", "q", "", "Compare against this text instead of a stored note")
	similarCmd.Flags().Float64Var(&similarThreshold, "threshold", 0, "Minimum cosine similarity (default: configured backlink threshold)")
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "l", 0, "Maximum number of results (default: configured backlink limit)")
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && similarQuery == "" {
		return fmt.Errorf("pass a note id or --query")
	}

	svc, err := getServices()
	if err != nil {
		return err
	}

	threshold := appConfig.BacklinkThreshold
	if cmd.Flags().Changed("threshold") {
		threshold = similarThreshold
	}
	limit := appConfig.BacklinkLimit
	if cmd.Flags().Changed("limit") {
		limit = similarLimit
	}
	if limit < 1 {
		return fmt.Errorf("%w: --limit %d (must be at least 1)", interrors.ErrInvalidNumber, limit)
	}

	var similar []services.SimilarNote
	if len(args) == 1 {
		similar, err = svc.Notes.Similar(args[0], threshold, limit)
	} else {
		similar, err = svc.Notes.SimilarToText(cmd.Context(), similarQuery, threshold, limit)
	}
	if err != nil {
		return fmt.Errorf("similarity search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(similar) == 0 {
		fmt.Fprintf(out, "No notes at or above similarity %.2f.\n", threshold)
		return nil
	}
	for i, sn := range similar {
		fmt.Fprintf(out, "%d. %s  %.4f  %s\n", i+1, sn.Note.ID, sn.Score, sn.Note.Preview(constants.ShortPreviewLength))
	}
	return nil
}
