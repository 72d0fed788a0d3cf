package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/embeddings"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize meetnotes configuration",
	Long: `Initialize meetnotes configuration interactively or with flags.
This command writes the configuration file and creates the data directory.

Embedding providers:
  ollama  Local Ollama server (default)
  openai  OpenAI-compatible embeddings API (needs OPENAI_API_KEY)
  remote  /receive-data endpoint of another meetnotes server
  hash    Offline hashing embedder, no model required`,
	RunE: runInit,
}

var (
	initDataDir        string
	initProvider       string
	initOllamaEndpoint string
	initInteractive    bool
	initForce          bool
)

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "", "Data directory for the note store and embedding cache")
	initCmd.Flags().StringVar(&initProvider, "provider", "", "Embedding provider (ollama, openai, remote, hash)")
	initCmd.Flags().StringVar(&initOllamaEndpoint, "ollama-endpoint", "", "Ollama API endpoint (e.g., http://localhost:11434)")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Run interactive setup")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration without asking")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if _, err := os.Stat(configPath); err == nil && !initForce {
		fmt.Fprintf(out, "Configuration already exists at: %s\n", configPath)
		if !confirm(reader, out, "Do you want to overwrite it? (y/N): ") {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	if initInteractive || (initDataDir == "" && initProvider == "" && initOllamaEndpoint == "") {
		fmt.Fprintln(out, "=== meetnotes Configuration Setup ===")
		fmt.Fprintln(out)

		initDataDir = prompt(reader, out, "Data directory", config.GetDefaultDataDirectory())
		initDataDir = expandPath(initDataDir)
		initProvider = prompt(reader, out, "Embedding provider (ollama/openai/remote/hash)", config.ProviderOllama)
		if strings.EqualFold(initProvider, config.ProviderOllama) {
			initOllamaEndpoint = prompt(reader, out, "Ollama API endpoint", "http://localhost:11434")
		}
	}

	cfg, err := config.InitializeConfig(initDataDir, initProvider, initOllamaEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	fmt.Fprintln(out, "\n=== Configuration Summary ===")
	fmt.Fprintf(out, "Config file:        %s\n", configPath)
	fmt.Fprintf(out, "Data directory:     %s\n", cfg.DataDirectory)
	fmt.Fprintf(out, "Store path:         %s\n", cfg.GetStorePath())
	fmt.Fprintf(out, "Embedding space:    %s\n", cfg.EmbeddingSpace())
	fmt.Fprintf(out, "Embedding cache:    %v\n", cfg.EnableEmbeddingCache)
	fmt.Fprintf(out, "Backlinks:          threshold %.2f, limit %d\n", cfg.BacklinkThreshold, cfg.BacklinkLimit)
	fmt.Fprintf(out, "Auto-tagging:       %v\n", cfg.EnableAutoTagging)

	fmt.Fprintln(out, "\nConfiguration initialized successfully!")

	if cfg.EmbeddingProvider == config.ProviderOllama && confirm(reader, out, "\nWould you like to test the Ollama connection? (y/N): ") {
		testEmbeddingProvider(cmd.Context(), cfg, out)
	}

	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, label, def string) string {
	fmt.Fprintf(out, "%s [%s]: ", label, def)
	input, _ := reader.ReadString('\n')
	if input = strings.TrimSpace(input); input != "" {
		return input
	}
	return def
}

func confirm(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprint(out, question)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

func testEmbeddingProvider(ctx context.Context, cfg *config.Config, out io.Writer) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fmt.Fprintf(out, "\nEmbedding a test sentence with %s...\n", cfg.EmbeddingSpace())
	provider, err := embeddings.NewProvider(cfg)
	if err == nil {
		var vec []float64
		vec, err = provider.Embed(ctx, "Meeting Summary: connection test")
		if err == nil {
			fmt.Fprintf(out, "OK: %d dimensions\n", len(vec))
			return
		}
	}
	fmt.Fprintf(out, "Failed: %v\n", err)
	fmt.Fprintln(out, "Make sure Ollama is running and has the required models installed:")
	fmt.Fprintf(out, "  ollama pull %s  # For embeddings\n", cfg.EmbeddingModel)
	if cfg.EnableAutoTagging && cfg.AutoTagModel != "" {
		fmt.Fprintf(out, "  ollama pull %s  # For auto-tagging\n", cfg.AutoTagModel)
	}
}
