package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/constants"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/models"
	"github.com/streed/meetnotes/internal/services"
)

type NotesServer struct {
	cfg       *config.Config
	services  *services.Services
	mcpServer *server.MCPServer
}

func NewNotesServer(cfg *config.Config, svc *services.Services, version string) *NotesServer {
	ns := &NotesServer{
		cfg:      cfg,
		services: svc,
	}

	ns.mcpServer = server.NewMCPServer(
		"meetnotes",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	ns.registerTools()
	ns.registerResources()
	ns.registerPrompts()

	return ns
}

func (s *NotesServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *NotesServer) registerTools() {
	addNoteTool := mcp.NewTool("add_note",
		mcp.WithDescription("Store a meeting summary. It is embedded and linked to similar summaries."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("The meeting summary text"),
		),
		mcp.WithString("tags",
			mcp.Description("Comma-separated tags for the note (optional)"),
		),
		mcp.WithBoolean("auto_tag",
			mcp.Description("Also apply suggested tags (default: false)"),
		),
	)
	s.mcpServer.AddTool(addNoteTool, s.handleAddNote)

	getNoteTool := mcp.NewTool("get_note",
		mcp.WithDescription("Get a specific note by ID, including its backlinks"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the note, e.g. summary_..."),
		),
	)
	s.mcpServer.AddTool(getNoteTool, s.handleGetNote)

	listNotesTool := mcp.NewTool("list_notes",
		mcp.WithDescription("List stored notes in insertion order"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of notes to return (default: 20)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of notes to skip"),
		),
	)
	s.mcpServer.AddTool(listNotesTool, s.handleListNotes)

	similarTool := mcp.NewTool("similar_notes",
		mcp.WithDescription("Find notes similar to a stored note (by id) or to arbitrary text (by query)"),
		mcp.WithString("id",
			mcp.Description("ID of a stored note"),
		),
		mcp.WithString("query",
			mcp.Description("Free text to compare against, used when id is not given"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum cosine similarity (default: configured backlink threshold)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: configured backlink limit)"),
		),
	)
	s.mcpServer.AddTool(similarTool, s.handleSimilarNotes)

	backlinksTool := mcp.NewTool("update_backlinks",
		mcp.WithDescription("Recompute the backlinks of every note"),
		mcp.WithBoolean("dry_run",
			mcp.Description("Only report what would change (default: false)"),
		),
	)
	s.mcpServer.AddTool(backlinksTool, s.handleUpdateBacklinks)

	suggestTagsTool := mcp.NewTool("suggest_tags",
		mcp.WithDescription("Suggest tags for a note or for arbitrary text"),
		mcp.WithString("id",
			mcp.Description("ID of the note to analyze"),
		),
		mcp.WithString("text",
			mcp.Description("Text to analyze, used when id is not given"),
		),
		mcp.WithBoolean("apply",
			mcp.Description("Merge the suggestions into the note's tags (requires id)"),
		),
	)
	s.mcpServer.AddTool(suggestTagsTool, s.handleSuggestTags)

	updateTagsTool := mcp.NewTool("update_note_tags",
		mcp.WithDescription("Add tags to a note, or replace its tags"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The ID of the note"),
		),
		mcp.WithString("tags",
			mcp.Required(),
			mcp.Description("Comma-separated tags"),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace existing tags instead of merging (default: false)"),
		),
	)
	s.mcpServer.AddTool(updateTagsTool, s.handleUpdateNoteTags)

	listTagsTool := mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags with the number of notes using them"),
	)
	s.mcpServer.AddTool(listTagsTool, s.handleListTags)
}

func (s *NotesServer) registerResources() {
	statsResource := mcp.NewResource("notes://stats",
		"Notes Statistics",
		mcp.WithResourceDescription("Statistics about the note store and backlinks"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStats)

	graphResource := mcp.NewResource("notes://graph",
		"Backlink Graph",
		mcp.WithResourceDescription("Every note and every backlink edge"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(graphResource, s.handleGraph)

	configResource := mcp.NewResource("notes://config",
		"Configuration",
		mcp.WithResourceDescription("Current meetnotes configuration"),
		mcp.WithMIMEType("text/plain"),
	)
	s.mcpServer.AddResource(configResource, s.handleConfig)
}

func (s *NotesServer) registerPrompts() {
	relatedPrompt := mcp.NewPrompt("related_meetings",
		mcp.WithPromptDescription("Review a meeting summary together with the summaries it links to"),
		mcp.WithArgument("id",
			mcp.ArgumentDescription("ID of the note to start from"),
			mcp.RequiredArgument(),
		),
	)
	s.mcpServer.AddPrompt(relatedPrompt, s.handleRelatedPrompt)
}

// Tool handlers
func (s *NotesServer) handleAddNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_note")

	content, err := request.RequireString("content")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'content': %w", err)
	}

	tags := parseTags(request.GetString("tags", ""))
	if request.GetBool("auto_tag", false) && s.services.Tags.IsAvailable() {
		suggested, err := s.services.Tags.SuggestForText(ctx, content)
		if err != nil {
			logger.Warn("Auto-tagging failed: %v", err)
		} else {
			tags = models.MergeTags(tags, suggested)
		}
	}

	note, err := s.services.Notes.Add(ctx, content, tags)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	result := fmt.Sprintf("Note created successfully with ID: %s", note.ID)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.Tags, ", "))
	}
	if len(note.Backlinks) > 0 {
		result += fmt.Sprintf("\nBacklinks: %s", strings.Join(note.Backlinks, ", "))
	}
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleGetNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: get_note")

	id, err := request.RequireString("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}

	note, err := s.services.Notes.Get(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	result := fmt.Sprintf("Note ID: %s", note.ID)
	if len(note.Tags) > 0 {
		result += fmt.Sprintf("\nTags: %s", strings.Join(note.Tags, ", "))
	}
	if len(note.Backlinks) > 0 {
		result += fmt.Sprintf("\nBacklinks: %s", strings.Join(note.Backlinks, ", "))
	}
	if note.HasEmbedding() {
		result += fmt.Sprintf("\nEmbedding: %d dimensions", len(note.Embedding))
	} else {
		result += "\nEmbedding: none"
	}
	result += fmt.Sprintf("\n\nContent:\n%s", note.Text)

	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleListNotes(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_notes")

	limit := request.GetInt("limit", constants.DefaultListLimit)
	offset := request.GetInt("offset", 0)

	notes, err := s.services.Notes.List(limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}

	if len(notes) == 0 {
		return mcp.NewToolResultText("No notes found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Listing %d notes (offset: %d):\n\n", len(notes), offset)
	for i, note := range notes {
		tagsInfo := ""
		if len(note.Tags) > 0 {
			tagsInfo = fmt.Sprintf(" [Tags: %s]", strings.Join(note.Tags, ", "))
		}
		fmt.Fprintf(&b, "%d. [ID: %s]%s (%d backlinks)\n   %s\n\n",
			i+1+offset, note.ID, tagsInfo, len(note.Backlinks),
			note.Preview(constants.PreviewLength))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleSimilarNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: similar_notes")

	id := request.GetString("id", "")
	query := request.GetString("query", "")
	if id == "" && query == "" {
		return nil, fmt.Errorf("one of 'id' or 'query' must be provided")
	}

	threshold := request.GetFloat("threshold", s.cfg.BacklinkThreshold)
	limit := request.GetInt("limit", s.cfg.BacklinkLimit)

	var (
		similar []services.SimilarNote
		err     error
	)
	if id != "" {
		similar, err = s.services.Notes.Similar(id, threshold, limit)
	} else {
		similar, err = s.services.Notes.SimilarToText(ctx, query, threshold, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	if len(similar) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No notes at or above similarity %.2f.", threshold)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d similar notes:\n\n", len(similar))
	for i, sn := range similar {
		fmt.Fprintf(&b, "%d. [ID: %s] score %.4f\n   %s\n\n",
			i+1, sn.Note.ID, sn.Score, sn.Note.Preview(constants.PreviewLength))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *NotesServer) handleUpdateBacklinks(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: update_backlinks")

	if request.GetBool("dry_run", false) {
		plan, err := s.services.Notes.PreviewBacklinks()
		if err != nil {
			return nil, fmt.Errorf("failed to compute backlinks: %w", err)
		}
		ids := make([]string, 0, len(plan))
		for id := range plan {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		var b strings.Builder
		fmt.Fprintf(&b, "Backlinks for %d embedded notes (not saved):\n", len(plan))
		for _, id := range ids {
			links := make([]string, len(plan[id]))
			for i, m := range plan[id] {
				links[i] = fmt.Sprintf("%s (%.3f)", m.ID, m.Score)
			}
			fmt.Fprintf(&b, "- %s -> [%s]\n", id, strings.Join(links, ", "))
		}
		return mcp.NewToolResultText(b.String()), nil
	}

	result, err := s.services.Notes.RefreshBacklinks()
	if err != nil {
		return nil, fmt.Errorf("failed to update backlinks: %w", err)
	}
	return mcp.NewToolResultText(fmt.Sprintf(
		"Updated backlinks for %d of %d notes (%d changed).",
		result.Embedded, result.Total, result.Changed)), nil
}

func (s *NotesServer) handleSuggestTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: suggest_tags")

	id := request.GetString("id", "")
	text := request.GetString("text", "")

	var (
		tags []string
		err  error
	)
	switch {
	case id != "":
		tags, err = s.services.Tags.SuggestForNote(ctx, id)
	case text != "":
		tags, err = s.services.Tags.SuggestForText(ctx, text)
	default:
		return nil, fmt.Errorf("one of 'id' or 'text' must be provided")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to suggest tags: %w", err)
	}

	result := fmt.Sprintf("Suggested tags: %s", strings.Join(tags, ", "))
	if id != "" && request.GetBool("apply", false) {
		note, err := s.services.Notes.ApplyTags(id, tags, false)
		if err != nil {
			return nil, fmt.Errorf("failed to apply tags: %w", err)
		}
		result += fmt.Sprintf("\nApplied tags: %s", strings.Join(note.Tags, ", "))
	}
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleUpdateNoteTags(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: update_note_tags")

	id, err := request.RequireString("id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'id': %w", err)
	}
	tagsStr, err := request.RequireString("tags")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'tags': %w", err)
	}

	note, err := s.services.Notes.ApplyTags(id, parseTags(tagsStr), request.GetBool("overwrite", false))
	if err != nil {
		return nil, fmt.Errorf("failed to update tags: %w", err)
	}

	tagsInfo := "none"
	if len(note.Tags) > 0 {
		tagsInfo = strings.Join(note.Tags, ", ")
	}
	return mcp.NewToolResultText(fmt.Sprintf("Tags for note %s: %s", note.ID, tagsInfo)), nil
}

func (s *NotesServer) handleListTags(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: list_tags")

	tags, err := s.services.Tags.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	if len(tags) == 0 {
		return mcp.NewToolResultText("No tags found."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tags:\n", len(tags))
	for _, t := range tags {
		fmt.Fprintf(&b, "- %s (%d)\n", t.Name, t.Notes)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Resource handlers
func (s *NotesServer) handleStats(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://stats")

	stats, err := s.services.Notes.Stats()
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return jsonResource(request.Params.URI, stats)
}

func (s *NotesServer) handleGraph(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://graph")

	graph, err := s.services.Notes.Graph()
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return jsonResource(request.Params.URI, graph)
}

func (s *NotesServer) handleConfig(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	logger.Debug("MCP resource read: notes://config")

	content := fmt.Sprintf(`meetnotes Configuration:
- Store: %s
- Embedding: %s
- Backlink threshold: %.2f
- Backlink limit: %d
- Auto backlinks: %v
- Auto-tagging: %v`,
		s.cfg.GetStorePath(),
		s.cfg.EmbeddingSpace(),
		s.cfg.BacklinkThreshold,
		s.cfg.BacklinkLimit,
		s.cfg.AutoBacklinks,
		s.services.Tags.IsAvailable())

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     content,
		},
	}, nil
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// Prompt handlers
func (s *NotesServer) handleRelatedPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	id := request.Params.Arguments["id"]
	note, err := s.services.Notes.Get(id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here is a meeting summary (%s):\n\n%s\n", note.ID, note.Text)
	for _, linkID := range note.Backlinks {
		linked, err := s.services.Notes.Get(linkID)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\nRelated meeting (%s):\n\n%s\n", linked.ID, linked.Text)
	}
	b.WriteString("\nSummarize how these meetings relate: shared topics, decisions that carried over, and open items.")

	return &mcp.GetPromptResult{
		Description: "Related meetings",
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(b.String()),
			},
		},
	}, nil
}

func parseTags(tagsStr string) []string {
	var tags []string
	for _, tag := range strings.Split(tagsStr, ",") {
		if cleanTag := strings.TrimSpace(tag); cleanTag != "" {
			tags = append(tags, cleanTag)
		}
	}
	return tags
}
