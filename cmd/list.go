package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/constants"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notes",
	Long:  `List stored notes in insertion order with their tags and backlinks.`,
	RunE:  runList,
}

var (
	listLimit  int
	listOffset int
	listShort  bool
)

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntVarP(&listLimit, "limit", "l", constants.DefaultListLimit, "Maximum number of notes to display (0 for all)")
	listCmd.Flags().IntVarP(&listOffset, "offset", "o", 0, "Number of notes to skip")
	listCmd.Flags().BoolVarP(&listShort, "short", "s", false, "Show only ID and a one-line preview")
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	notes, err := svc.Notes.List(listLimit, listOffset)
	if err != nil {
		return fmt.Errorf("failed to list notes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(notes) == 0 {
		fmt.Fprintln(out, "No notes found.")
		return nil
	}

	fmt.Fprintf(out, "Found %d notes:\n\n", len(notes))
	for _, note := range notes {
		if listShort {
			fmt.Fprintf(out, "[%s] %s\n", note.ID, note.Preview(constants.ShortPreviewLength))
			continue
		}
		printNote(out, note, false)
		fmt.Fprintln(out, strings.Repeat("-", 60))
	}

	return nil
}
