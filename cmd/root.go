package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/streed/meetnotes/internal/autotag"
	"github.com/streed/meetnotes/internal/config"
	"github.com/streed/meetnotes/internal/embedcache"
	"github.com/streed/meetnotes/internal/embeddings"
	"github.com/streed/meetnotes/internal/logger"
	"github.com/streed/meetnotes/internal/services"
	"github.com/streed/meetnotes/internal/store"
)

var (
	appConfig   *config.Config
	appServices *services.Services
	debugFlag   bool
	Version     = "dev" // Version is set from main.go
)

var rootCmd = &cobra.Command{
	Use:     "meetnotes",
	Short:   "Link related meeting summaries by embedding similarity",
	Version: Version,
	Long: `meetnotes stores meeting summaries with their embeddings in a JSON file and
links every summary to the most similar other summaries (its backlinks).

First time users should run 'meetnotes init' to set up the configuration.`,
	SilenceUsage: true,
}

func Execute() error {
	rootCmd.Version = Version
	err := rootCmd.Execute()
	if appServices != nil {
		if cerr := appServices.Close(); cerr != nil {
			logger.Warn("Failed to close services: %v", cerr)
		}
	}
	return err
}

func init() {
	cobra.OnInitialize(initAppConfig)
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func initAppConfig() {
	// init and config manage the config file themselves
	if len(os.Args) > 1 && (os.Args[1] == "init" || os.Args[1] == "config") {
		return
	}

	var err error
	appConfig, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		fmt.Fprintf(os.Stderr, "Please run 'meetnotes init' to set up the configuration.\n")
		os.Exit(1)
	}

	if debugFlag || appConfig.Debug {
		logger.SetDebugMode(true)
		logger.Debug("Configuration loaded from: %s", func() string {
			path, _ := config.GetConfigPath()
			return path
		}())
		logger.Debug("Store: %s", appConfig.GetStorePath())
		logger.Debug("Embedding space: %s", appConfig.EmbeddingSpace())
		logger.Debug("Backlinks: threshold %.2f, limit %d", appConfig.BacklinkThreshold, appConfig.BacklinkLimit)
	}
}

// getServices builds the service container on first use so that commands
// which only read the store never contact an embedding provider.
func getServices() (*services.Services, error) {
	if appServices != nil {
		return appServices, nil
	}
	if appConfig == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	svc, err := buildServices(appConfig)
	if err != nil {
		return nil, err
	}
	appServices = svc
	return appServices, nil
}

func buildServices(cfg *config.Config) (*services.Services, error) {
	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up embedding provider: %w", err)
	}
	return services.NewServices(cfg, store.NewJSONStore(cfg.GetStorePath()), provider, buildTagger(cfg)), nil
}

func buildProvider(cfg *config.Config) (embeddings.Provider, error) {
	provider, err := embeddings.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.EnableEmbeddingCache {
		return provider, nil
	}

	cache, err := embedcache.Open(cfg.GetEmbeddingCachePath())
	if err != nil {
		logger.Warn("Embedding cache unavailable, continuing without it: %v", err)
		return provider, nil
	}
	return embedcache.NewCachedProvider(provider, cache), nil
}

// buildTagger returns nil when auto-tagging is disabled. The offline hash
// provider pairs with the keyword tagger so nothing needs a model server.
func buildTagger(cfg *config.Config) autotag.Tagger {
	if !cfg.EnableAutoTagging {
		return nil
	}
	if cfg.EmbeddingProvider == config.ProviderHash {
		return &autotag.KeywordTagger{MaxTags: cfg.MaxAutoTags}
	}

	tagger, err := autotag.NewOllamaTagger(cfg)
	if err != nil {
		logger.Warn("Auto-tagging unavailable: %v", err)
		return nil
	}
	return tagger
}
