package cmd

import (
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for LLM integration",
	Long: `Start a Model Context Protocol (MCP) server on stdio so that an LLM client
can store and explore meeting summaries.

Tools:
- add_note: Store a summary (embedded and linked on the way in)
- get_note: Retrieve a note with its backlinks
- list_notes: List notes with pagination
- similar_notes: Rank notes against a note or free text
- update_backlinks: Recompute every note's backlinks (optionally dry run)
- suggest_tags: Suggest (and optionally apply) tags
- update_note_tags: Add or replace the tags of a note
- list_tags: View all tags

Resources:
- notes://stats: Store and backlink statistics
- notes://graph: Every note and backlink edge
- notes://config: Current configuration

Prompts:
- related_meetings: Review a summary together with its linked summaries

To use with Claude Desktop, add this to your claude_desktop_config.json:
{
  "mcpServers": {
    "meetnotes": {
      "command": "meetnotes",
      "args": ["mcp"]
    }
  }
}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout carries the protocol
	logger.SetOutput(os.Stderr)
	logger.Info("Starting MCP server...")

	svc, err := getServices()
	if err != nil {
		return err
	}

	notesServer := mcp.NewNotesServer(appConfig, svc, Version)
	mcpServer := notesServer.GetMCPServer()

	logger.Info("MCP server ready. Listening on stdio...")
	if err := server.ServeStdio(mcpServer); err != nil {
		if err.Error() != "EOF" {
			logger.Error("MCP server error: %v", err)
			return err
		}
	}

	logger.Info("MCP server shutting down")
	return nil
}
