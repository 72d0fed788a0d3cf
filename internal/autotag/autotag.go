package autotag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/constants"
	"github.com/streed/meetnotes/internal/logger"
)

// Tagger suggests tags for a meeting summary.
type Tagger interface {
	SuggestTags(ctx context.Context, text string) ([]string, error)
}

type TagSuggestion struct {
	Tags       []string `json:"tags"`
	Confidence string   `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

var (
	jsonTagsRegex    = regexp.MustCompile(`\{[^}]*"tags"[^}]*\}`)
	structuredRegexs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)suggested tags?:\s*(.+)`),
		regexp.MustCompile(`(?i)tags?:\s*(.+)`),
		regexp.MustCompile(`(?i)categories?:\s*(.+)`),
	}
	preambleRegexs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(here are|suggested|recommended)?\s*(tags?|keywords?):?\s*`),
		regexp.MustCompile(`(?i)^(the\s+)?(following\s+)?tags?\s+(are|would\s+be):?\s*`),
	}
	whitespaceRegex = regexp.MustCompile(`\s+`)
	leadingJunk     = regexp.MustCompile(`^[-•*\d.\s"'\[\]()#]+`)
	trailingJunk    = regexp.MustCompile(`[-•*.\s"'\[\]()]+$`)
	disallowedChars = regexp.MustCompile(`[^a-z0-9\s-]`)
)

// stopTags are generic words that appear in every meeting summary.
var stopTags = map[string]bool{
	"overview": true, "summary": true, "meeting summary": true, "key concepts": true,
	"next steps": true, "current progress": true, "remaining tasks": true,
	"structure": true, "strategy": true, "method": true, "logic": true,
	"discussion": true, "result": true, "results": true, "task": true, "tasks": true,
	"step": true, "conclusion": true, "meeting": true,
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"note": true, "notes": true, "content": true, "text": true, "information": true,
}

// OllamaTagger asks an Ollama model for comma-separated tags.
type OllamaTagger struct {
	client  *api.Client
	model   string
	maxTags int
}

func NewOllamaTagger(cfg *config.Config) (*OllamaTagger, error) {
	base, err := url.Parse(cfg.OllamaEndpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama endpoint %q: %w", cfg.OllamaEndpoint, err)
	}
	return &OllamaTagger{
		client:  api.NewClient(base, &http.Client{Timeout: 60 * time.Second}),
		model:   cfg.AutoTagModel,
		maxTags: cfg.MaxAutoTags,
	}, nil
}

// SuggestTags analyzes a summary and returns cleaned tags
func (t *OllamaTagger) SuggestTags(ctx context.Context, text string) ([]string, error) {
	logger.Debug("Sending auto-tagging request to Ollama model %s", t.model)

	response, err := t.generate(ctx, buildTaggingPrompt(text, t.limit()))
	if err != nil {
		return nil, fmt.Errorf("failed to get tag suggestions from Ollama: %w", err)
	}

	tags, err := parseTags(response)
	if err != nil {
		logger.Debug("Failed to parse structured response, falling back to simple extraction: %v", err)
		tags = extractTagsFromText(response)
	}

	cleaned := CleanTags(tags, t.limit())
	logger.Debug("Suggested tags: %v", cleaned)
	return cleaned, nil
}

func (t *OllamaTagger) limit() int {
	if t.maxTags <= 0 {
		return constants.DefaultMaxAutoTags
	}
	return t.maxTags
}

func (t *OllamaTagger) generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  t.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.3,
			"top_p":       0.9,
			"num_predict": 100,
		},
	}

	var out strings.Builder
	err := t.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		out.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.String()), nil
}

// IsAvailable checks whether the Ollama server answers.
func (t *OllamaTagger) IsAvailable(ctx context.Context) bool {
	return t.client.Heartbeat(ctx) == nil
}

func buildTaggingPrompt(text string, maxTags int) string {
	return fmt.Sprintf(`Please analyze the following meeting summary and suggest up to %d tags naming its subject matter.

Summary:
%s

Instructions:
- Name the topics, technologies, projects and domains discussed
- Use lowercase, single words or short phrases connected with hyphens
- Do not use generic words such as overview, summary, next steps or meeting
- Return ONLY a comma-separated list of tags, no explanations

Examples of good tags: arbitrage, backtesting, sentiment-analysis, product-roadmap, object-detection

Tags:`, maxTags, text)
}

// parseTags attempts to parse structured tag response (JSON or formatted)
func parseTags(response string) ([]string, error) {
	if match := jsonTagsRegex.FindString(response); match != "" {
		var suggestion TagSuggestion
		if err := json.Unmarshal([]byte(match), &suggestion); err == nil {
			return suggestion.Tags, nil
		}
	}

	for _, regex := range structuredRegexs {
		if matches := regex.FindStringSubmatch(response); len(matches) > 1 {
			return parseTagString(matches[1]), nil
		}
	}

	return nil, fmt.Errorf("could not parse structured tags from response")
}

// extractTagsFromText extracts tags from free-form text response
func extractTagsFromText(response string) []string {
	response = strings.TrimSpace(response)
	for _, regex := range preambleRegexs {
		response = regex.ReplaceAllString(response, "")
	}
	return parseTagString(response)
}

// parseTagString splits on commas, then semicolons, then newlines, then whitespace.
func parseTagString(tagStr string) []string {
	tagStr = strings.TrimSpace(tagStr)

	var tags []string
	switch {
	case strings.Contains(tagStr, ","):
		tags = strings.Split(tagStr, ",")
	case strings.Contains(tagStr, ";"):
		tags = strings.Split(tagStr, ";")
	case strings.Contains(tagStr, "\n"):
		tags = strings.Split(tagStr, "\n")
	default:
		tags = whitespaceRegex.Split(tagStr, -1)
	}

	var result []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			result = append(result, tag)
		}
	}
	return result
}

// CleanTag lower-cases a tag, strips list markers and any character other
// than letters, digits, spaces and hyphens, and collapses whitespace.
func CleanTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = leadingJunk.ReplaceAllString(tag, "")
	tag = trailingJunk.ReplaceAllString(tag, "")
	tag = disallowedChars.ReplaceAllString(tag, "")
	tag = whitespaceRegex.ReplaceAllString(tag, " ")
	return strings.TrimSpace(tag)
}

// CleanTags cleans, filters and deduplicates tags, keeping at most maxTags.
func CleanTags(tags []string, maxTags int) []string {
	seen := make(map[string]bool)
	result := []string{}

	for _, tag := range tags {
		tag = CleanTag(tag)
		if len(tag) < constants.MinTagLength || len(tag) > constants.MaxTagLength {
			continue
		}
		if stopTags[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		result = append(result, tag)
	}

	if maxTags > 0 && len(result) > maxTags {
		result = result[:maxTags]
	}
	return result
}
