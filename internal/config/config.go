package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/streed/meetnotes/internal/constants"
)

const appName = "meetnotes"

// Embedding provider names
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderRemote = "remote"
	ProviderHash   = "hash"
)

type Config struct {
	DataDirectory string `json:"data_directory,omitempty"`
	StorePath     string `json:"store_path,omitempty"`

	// Embeddings
	EmbeddingProvider    string `json:"embedding_provider"`
	EmbeddingModel       string `json:"embedding_model"`
	VectorDimensions     int    `json:"vector_dimensions"`
	OllamaEndpoint       string `json:"ollama_endpoint"`
	OpenAIAPIKey         string `json:"openai_api_key,omitempty"`
	OpenAIBaseURL        string `json:"openai_base_url,omitempty"`
	RemoteEmbedURL       string `json:"remote_embed_url,omitempty"`
	EnableEmbeddingCache bool   `json:"enable_embedding_cache"`
	EmbeddingCachePath   string `json:"embedding_cache_path,omitempty"`

	// Backlinks
	BacklinkThreshold float64 `json:"backlink_threshold"`
	BacklinkLimit     int     `json:"backlink_limit"`
	AutoBacklinks     bool    `json:"auto_backlinks"`

	// Tagging
	EnableAutoTagging bool   `json:"enable_auto_tagging"`
	AutoTagModel      string `json:"auto_tag_model,omitempty"`
	MaxAutoTags       int    `json:"max_auto_tags"`

	Debug bool `json:"debug"`
}

// getDefaultConfig returns a fresh copy of the default configuration
func getDefaultConfig() Config {
	return Config{
		DataDirectory: "", // Will be set to ~/.local/share/meetnotes
		StorePath:     "", // Will be set to DataDirectory/db.json

		EmbeddingProvider:    ProviderOllama,
		EmbeddingModel:       "all-minilm",
		VectorDimensions:     0, // Zero accepts whatever the model returns
		OllamaEndpoint:       "http://localhost:11434",
		RemoteEmbedURL:       "http://127.0.0.1:5000/receive-data",
		EnableEmbeddingCache: true,

		BacklinkThreshold: constants.DefaultBacklinkThreshold,
		BacklinkLimit:     constants.DefaultBacklinkLimit,
		AutoBacklinks:     true,

		EnableAutoTagging: true,
		AutoTagModel:      "llama3.2:1b",
		MaxAutoTags:       constants.DefaultMaxAutoTags,

		Debug: false,
	}
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, appName, "config.json"), nil
}

func GetDefaultDataDirectory() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", "."+appName)
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, appName)
}

// Load reads the config file (defaults when it does not exist yet), fills
// empty fields and applies environment overrides. A .env file in the working
// directory is loaded first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	cfg := getDefaultConfig()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		// defaults
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	cfg.fillDefaults()
	return &cfg, nil
}

func (c *Config) fillDefaults() {
	defaults := getDefaultConfig()

	if c.DataDirectory == "" {
		c.DataDirectory = GetDefaultDataDirectory()
	}
	if c.StorePath == "" {
		c.StorePath = filepath.Join(c.DataDirectory, constants.StoreFileName)
	}
	if c.EmbeddingCachePath == "" {
		c.EmbeddingCachePath = filepath.Join(c.DataDirectory, constants.CacheFileName)
	}
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = defaults.EmbeddingProvider
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = defaults.EmbeddingModel
	}
	if c.OllamaEndpoint == "" {
		c.OllamaEndpoint = defaults.OllamaEndpoint
	}
	if c.BacklinkThreshold == 0 {
		c.BacklinkThreshold = defaults.BacklinkThreshold
	}
	if c.BacklinkLimit <= 0 {
		c.BacklinkLimit = defaults.BacklinkLimit
	}
	if c.MaxAutoTags == 0 {
		c.MaxAutoTags = defaults.MaxAutoTags
	}
}

func applyEnv(c *Config) {
	if v := os.Getenv("MEETNOTES_DATA_DIR"); v != "" {
		c.DataDirectory = v
	}
	if v := os.Getenv("MEETNOTES_STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("MEETNOTES_EMBEDDING_PROVIDER"); v != "" {
		c.EmbeddingProvider = strings.ToLower(v)
	}
	if v := os.Getenv("MEETNOTES_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("MEETNOTES_OLLAMA_ENDPOINT"); v != "" {
		c.OllamaEndpoint = v
	}
	if v := os.Getenv("MEETNOTES_DEBUG"); v != "" {
		if b, err := ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = v
	}
}

func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), constants.DirectoryMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if cfg.DataDirectory != "" {
		if err := os.MkdirAll(cfg.DataDirectory, constants.DirectoryMode); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write config file with secure permissions, it may hold an API key
	if err := os.WriteFile(configPath, data, constants.ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func InitializeConfig(dataDir, provider, ollamaEndpoint string) (*Config, error) {
	cfg := getDefaultConfig()

	if dataDir != "" {
		cfg.DataDirectory = dataDir
	} else {
		cfg.DataDirectory = GetDefaultDataDirectory()
	}
	cfg.StorePath = filepath.Join(cfg.DataDirectory, constants.StoreFileName)
	cfg.EmbeddingCachePath = filepath.Join(cfg.DataDirectory, constants.CacheFileName)

	if provider != "" {
		cfg.EmbeddingProvider = strings.ToLower(provider)
	}
	if ollamaEndpoint != "" {
		cfg.OllamaEndpoint = ollamaEndpoint
	}

	if err := Save(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) GetStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(c.DataDirectory, constants.StoreFileName)
}

func (c *Config) GetEmbeddingCachePath() string {
	if c.EmbeddingCachePath != "" {
		return c.EmbeddingCachePath
	}
	return filepath.Join(c.DataDirectory, constants.CacheFileName)
}

// EmbeddingSpace identifies the vector space notes are embedded in. Notes
// embedded in different spaces must not be compared.
func (c *Config) EmbeddingSpace() string {
	return fmt.Sprintf("%s/%s", c.EmbeddingProvider, c.EmbeddingModel)
}

// ParseBool accepts true/false, yes/no and 1/0.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case constants.BoolTrue, constants.BoolYes, constants.BoolOne:
		return true, nil
	case constants.BoolFalse, constants.BoolNo, constants.BoolZero:
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}

// ParseFloat is a thin wrapper kept next to ParseBool for config set.
func ParseFloat(value string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(value), 64)
}
