// Package config loads runtime configuration from ~/.synapse and the
// environment. Environment variables always win over file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	GoogleAPIKey    string
	// RoutesFile optionally overlays the built-in route tables.
	RoutesFile string
	// WeightsFile is the hot-reloaded classifier weights JSON.
	WeightsFile string
	// ObservabilityDB is the SQLite path for events, scores and handoffs.
	ObservabilityDB string
	WorkspaceDir    string
	ConfigDir       string
}

// FileConfig is the structure of ~/.synapse/config.yaml.
type FileConfig struct {
	APIKeys APIKeysConfig `yaml:"api_keys"`
	Routing RoutingPaths  `yaml:"routing"`
}

// APIKeysConfig holds API key configuration from file.
type APIKeysConfig struct {
	Anthropic string `yaml:"anthropic"`
	OpenAI    string `yaml:"openai"`
	Google    string `yaml:"google"`
}

// RoutingPaths holds file locations the routing core reads.
type RoutingPaths struct {
	RoutesFile      string `yaml:"routes_file"`
	WeightsFile     string `yaml:"weights_file"`
	ObservabilityDB string `yaml:"observability_db"`
}

// Load reads configuration from the config file and environment variables.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	fileConfig := loadFileConfig(filepath.Join(configDir, "config.yaml"))

	cfg := &Config{
		AnthropicAPIKey: getEnvOrDefault("ANTHROPIC_API_KEY", fileConfig.APIKeys.Anthropic),
		OpenAIAPIKey:    getEnvOrDefault("OPENAI_API_KEY", fileConfig.APIKeys.OpenAI),
		GoogleAPIKey:    getEnvOrDefault("GOOGLE_API_KEY", fileConfig.APIKeys.Google),
		RoutesFile:      getEnvOrDefault("SYNAPSE_ROUTES_FILE", fileConfig.Routing.RoutesFile),
		WeightsFile:     getEnvOrDefault("SYNAPSE_WEIGHTS_FILE", fileConfig.Routing.WeightsFile),
		ObservabilityDB: getEnvOrDefault("SYNAPSE_OBS_DB", fileConfig.Routing.ObservabilityDB),
		ConfigDir:       configDir,
	}

	if cfg.RoutesFile == "" {
		cfg.RoutesFile = filepath.Join(configDir, "routes.yaml")
	}
	if cfg.WeightsFile == "" {
		cfg.WeightsFile = filepath.Join(configDir, "routing-weights.json")
	}
	if cfg.ObservabilityDB == "" {
		cfg.ObservabilityDB = filepath.Join(configDir, "observability.sqlite")
	}
	if cfg.WorkspaceDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.WorkspaceDir = cwd
		}
	}

	return cfg, nil
}

// HasProvider returns true if the API key for the given provider is
// configured.
func (c *Config) HasProvider(name string) bool {
	switch name {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "openai", "openai-codex":
		return c.OpenAIAPIKey != ""
	case "google", "google-gemini":
		return c.GoogleAPIKey != ""
	default:
		return false
	}
}

// loadFileConfig reads the config file, returning an empty config if not
// found or malformed.
func loadFileConfig(path string) *FileConfig {
	cfg := &FileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, cfg)
	return cfg
}

func getEnvOrDefault(envVar, defaultValue string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return defaultValue
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".synapse")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
