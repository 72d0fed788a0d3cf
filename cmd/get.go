package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get a note by ID",
	Long:  `Display the full text of a note together with its tags and backlinks.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

var getShowLinks bool

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getShowLinks, "links", false, "Also print a preview of every backlinked note")
}

func runGet(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	note, err := svc.Notes.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get note: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Repeat("=", 80))
	printNote(out, note, true)
	fmt.Fprintln(out, strings.Repeat("=", 80))

	if getShowLinks && len(note.Backlinks) > 0 {
		fmt.Fprintln(out, "\nLinked summaries:")
		for _, id := range note.Backlinks {
			linked, err := svc.Notes.Get(id)
			if err != nil {
				fmt.Fprintf(out, "  %s  (missing)\n", id)
				continue
			}
			fmt.Fprintf(out, "  %s  %s\n", linked.ID, linked.Preview(80))
		}
	}
	return nil
}
