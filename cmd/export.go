package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/streed/meetnotes/internal/models"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every note as JSON or YAML",
	Long: `Write every stored note to stdout or to a file.

Examples:
  meetnotes export > backup.json
  meetnotes export --format yaml --output notes.yaml
  meetnotes export --format yaml --no-embeddings`,
	RunE: runExport,
}

var (
	exportFormat       string
	exportOutput       string
	exportNoEmbeddings bool
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format (json, yaml)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	exportCmd.Flags().BoolVar(&exportNoEmbeddings, "no-embeddings", false, "Leave embeddings out of the export")
}

func runExport(cmd *cobra.Command, args []string) error {
	svc, err := getServices()
	if err != nil {
		return err
	}

	notes, err := svc.Notes.List(0, 0)
	if err != nil {
		return fmt.Errorf("failed to load notes: %w", err)
	}

	out := cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	if err := writeNotes(out, notes, exportFormat, !exportNoEmbeddings); err != nil {
		return err
	}
	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d notes to %s\n", len(notes), exportOutput)
	}
	return nil
}

func writeNotes(w io.Writer, notes []*models.Note, format string, withEmbeddings bool) error {
	if !withEmbeddings {
		stripped := make([]*models.Note, len(notes))
		for i, n := range notes {
			c := n.Clone()
			c.Embedding = nil
			stripped[i] = c
		}
		notes = stripped
	}

	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(notes)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(notes); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported format %q (use json or yaml)", format)
	}
}
