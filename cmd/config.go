package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/config"
	interrors "github.com/streed/meetnotes/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage meetnotes configuration",
	Long:  `View and manage meetnotes configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	RunE:  runConfigPath,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Set a specific configuration value.

Available keys:
  - data-dir: Data directory for the note store and embedding cache
  - store-path: Path of the JSON note store
  - embedding-provider: ollama, openai, remote or hash
  - embedding-model: Embedding model name
  - vector-dimensions: Expected embedding length (0 accepts any)
  - ollama-endpoint: Ollama API endpoint
  - openai-api-key: API key for the openai provider
  - openai-base-url: Base URL of an OpenAI-compatible API
  - remote-embed-url: /receive-data URL for the remote provider
  - enable-embedding-cache: Cache embeddings in SQLite (true/false)
  - backlink-threshold: Minimum cosine similarity for a backlink
  - backlink-limit: Maximum backlinks per note
  - auto-backlinks: Recompute backlinks after every add (true/false)
  - enable-auto-tagging: Enable tag suggestions (true/false)
  - auto-tag-model: Ollama model used for tag suggestions
  - max-auto-tags: Maximum suggested tags per note
  - debug: Enable/disable debug logging (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	out := cmd.OutOrStdout()
	apiKey := "not set"
	if cfg.OpenAIAPIKey != "" {
		apiKey = "set"
	}

	fmt.Fprintln(out, "=== meetnotes Configuration ===")
	fmt.Fprintf(out, "Config file:             %s\n", configPath)
	fmt.Fprintf(out, "data-dir:                %s\n", cfg.DataDirectory)
	fmt.Fprintf(out, "store-path:              %s\n", cfg.GetStorePath())
	fmt.Fprintf(out, "embedding-provider:      %s\n", cfg.EmbeddingProvider)
	fmt.Fprintf(out, "embedding-model:         %s\n", cfg.EmbeddingModel)
	fmt.Fprintf(out, "vector-dimensions:       %d\n", cfg.VectorDimensions)
	fmt.Fprintf(out, "ollama-endpoint:         %s\n", cfg.OllamaEndpoint)
	fmt.Fprintf(out, "openai-api-key:          %s\n", apiKey)
	if cfg.OpenAIBaseURL != "" {
		fmt.Fprintf(out, "openai-base-url:         %s\n", cfg.OpenAIBaseURL)
	}
	fmt.Fprintf(out, "remote-embed-url:        %s\n", cfg.RemoteEmbedURL)
	fmt.Fprintf(out, "enable-embedding-cache:  %v\n", cfg.EnableEmbeddingCache)
	fmt.Fprintf(out, "Embedding cache path:    %s\n", cfg.GetEmbeddingCachePath())
	fmt.Fprintf(out, "backlink-threshold:      %.2f\n", cfg.BacklinkThreshold)
	fmt.Fprintf(out, "backlink-limit:          %d\n", cfg.BacklinkLimit)
	fmt.Fprintf(out, "auto-backlinks:          %v\n", cfg.AutoBacklinks)
	fmt.Fprintf(out, "enable-auto-tagging:     %v\n", cfg.EnableAutoTagging)
	if cfg.EnableAutoTagging {
		fmt.Fprintf(out, "auto-tag-model:          %s\n", cfg.AutoTagModel)
		fmt.Fprintf(out, "max-auto-tags:           %d\n", cfg.MaxAutoTags)
	}
	fmt.Fprintf(out, "debug:                   %v\n", cfg.Debug)

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), configPath)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	oldSpace := cfg.EmbeddingSpace()
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}

	if oldSpace != cfg.EmbeddingSpace() {
		fmt.Fprintln(cmd.OutOrStdout(), "\nWarning: the embedding space has changed.")
		fmt.Fprintln(cmd.OutOrStdout(), "Existing embeddings are not comparable with new ones; start a new store or re-import your summaries.")
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration updated: %s = %s\n", key, value)
	return nil
}

func setConfigValue(cfg *config.Config, key, value string) error {
	var err error
	switch key {
	case "data-dir":
		cfg.DataDirectory = expandPath(value)
		cfg.StorePath = ""          // Will be regenerated
		cfg.EmbeddingCachePath = "" // Will be regenerated
	case "store-path":
		cfg.StorePath = expandPath(value)
	case "embedding-provider":
		provider := strings.ToLower(value)
		switch provider {
		case config.ProviderOllama, config.ProviderOpenAI, config.ProviderRemote, config.ProviderHash:
			cfg.EmbeddingProvider = provider
		default:
			return fmt.Errorf("%w: %s", interrors.ErrUnknownProvider, value)
		}
	case "embedding-model":
		cfg.EmbeddingModel = value
	case "vector-dimensions":
		cfg.VectorDimensions, err = parseInt(value, 0)
	case "ollama-endpoint":
		cfg.OllamaEndpoint = value
	case "openai-api-key":
		cfg.OpenAIAPIKey = value
	case "openai-base-url":
		cfg.OpenAIBaseURL = value
	case "remote-embed-url":
		cfg.RemoteEmbedURL = value
	case "enable-embedding-cache":
		cfg.EnableEmbeddingCache, err = parseBool(value)
	case "backlink-threshold":
		var threshold float64
		threshold, err = config.ParseFloat(value)
		if err != nil || threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: %s (must be between -1 and 1)", interrors.ErrInvalidNumber, value)
		}
		cfg.BacklinkThreshold = threshold
	case "backlink-limit":
		cfg.BacklinkLimit, err = parseInt(value, 1)
	case "auto-backlinks":
		cfg.AutoBacklinks, err = parseBool(value)
	case "enable-auto-tagging":
		cfg.EnableAutoTagging, err = parseBool(value)
	case "auto-tag-model":
		cfg.AutoTagModel = value
	case "max-auto-tags":
		cfg.MaxAutoTags, err = parseInt(value, 1)
	case "debug":
		cfg.Debug, err = parseBool(value)
	default:
		return fmt.Errorf("%w: %s", interrors.ErrUnknownConfigKey, key)
	}
	return err
}

func parseBool(value string) (bool, error) {
	b, err := config.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s", interrors.ErrInvalidBoolean, value)
	}
	return b, nil
}

func parseInt(value string, minValue int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < minValue {
		return 0, fmt.Errorf("%w: %s", interrors.ErrInvalidNumber, value)
	}
	return n, nil
}
