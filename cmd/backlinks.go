package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	interrors "github.com/streed/meetnotes/internal/errors"
)

var backlinksCmd = &cobra.Command{
	Use:   "backlinks",
	Short: "Recompute the backlinks of every note",
	Long: `Recompute every embedded note's backlinks from scratch: the ids of the most
similar other notes whose cosine similarity reaches the threshold. The store
is written once; with --dry-run nothing is written.

--threshold and --limit override the configured values for this run only.`,
	RunE: runBacklinks,
}

var (
	backlinksThreshold float64
	backlinksLimit     int
	backlinksDryRun    bool
)

func init() {
	rootCmd.AddCommand(backlinksCmd)
	backlinksCmd.Flags().Float64Var(&backlinksThreshold, "threshold", 0, "Minimum cosine similarity (default: configured backlink threshold)")
	backlinksCmd.Flags().IntVar(&backlinksLimit, "limit", 0, "Maximum backlinks per note (default: configured backlink limit)")
	backlinksCmd.Flags().BoolVar(&backlinksDryRun, "dry-run", false, "Print the backlinks without saving them")
}

func runBacklinks(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("threshold") {
		appConfig.BacklinkThreshold = backlinksThreshold
	}
	if cmd.Flags().Changed("limit") {
		if backlinksLimit < 1 {
			return fmt.Errorf("%w: --limit %d (must be at least 1)", interrors.ErrInvalidNumber, backlinksLimit)
		}
		appConfig.BacklinkLimit = backlinksLimit
	}

	svc, err := getServices()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if backlinksDryRun {
		plan, err := svc.Notes.PreviewBacklinks()
		if err != nil {
			return fmt.Errorf("failed to compute backlinks: %w", err)
		}

		ids := make([]string, 0, len(plan))
		for id := range plan {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			links := make([]string, len(plan[id]))
			for i, m := range plan[id] {
				links[i] = fmt.Sprintf("%s (%.3f)", m.ID, m.Score)
			}
			fmt.Fprintf(out, "%s -> [%s]\n", id, strings.Join(links, ", "))
		}
		fmt.Fprintf(out, "\n%d embedded notes (dry run, nothing saved)\n", len(plan))
		return nil
	}

	result, err := svc.Notes.RefreshBacklinks()
	if err != nil {
		return fmt.Errorf("failed to update backlinks: %w", err)
	}
	fmt.Fprintf(out, "Updated backlinks for %d of %d notes (%d changed).\n", result.Embedded, result.Total, result.Changed)
	if skipped := result.Total - result.Embedded; skipped > 0 {
		fmt.Fprintf(out, "%d notes have no embedding and were left unchanged.\n", skipped)
	}
	return nil
}
