// Package config loads tora's settings from a JSON file, a .env file and the environment.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override the file.
const (
	EnvUser         = "TORA_USER"
	EnvDBPath       = "TORA_DB"
	EnvRedisAddr    = "TORA_REDIS_ADDR"
	EnvRedisChannel = "TORA_REDIS_CHANNEL"
	EnvLogLevel     = "TORA_LOG_LEVEL"
	EnvLogFormat    = "TORA_LOG_FORMAT"
)

// Config holds application configuration.
type Config struct {
	// DefaultUser is the user id the CLI signs in as when --user is not given.
	DefaultUser string `json:"defaultUser"`
	// DBPath is the SQLite database. Empty means ~/.config/tora/tora.db.
	DBPath string `json:"dbPath"`
	// RedisAddr enables cross-process change notification when set.
	RedisAddr    string `json:"redisAddr"`
	RedisChannel string `json:"redisChannel"`

	LogLevel  string `json:"logLevel"`
	LogFormat string `json:"logFormat"` // "text" or "json"

	QuickAddFolder     string   `json:"quickAddFolder"`
	CullExcludeDomains []string `json:"cullExcludeDomains"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultUser:        "local",
		RedisChannel:       "tora:changes",
		LogLevel:           "info",
		LogFormat:          "text",
		QuickAddFolder:     "Read Later",
		CullExcludeDomains: []string{"github.com", "gitlab.com"},
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.DefaultUser == "" {
		c.DefaultUser = defaults.DefaultUser
	}
	if c.RedisChannel == "" {
		c.RedisChannel = defaults.RedisChannel
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	if c.QuickAddFolder == "" {
		c.QuickAddFolder = defaults.QuickAddFolder
	}
	if c.CullExcludeDomains == nil {
		c.CullExcludeDomains = defaults.CullExcludeDomains
	}
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ApplyEnv overrides config fields from TORA_* environment variables.
func (c *Config) ApplyEnv() {
	c.DefaultUser = getEnv(EnvUser, c.DefaultUser)
	c.DBPath = getEnv(EnvDBPath, c.DBPath)
	c.RedisAddr = getEnv(EnvRedisAddr, c.RedisAddr)
	c.RedisChannel = getEnv(EnvRedisChannel, c.RedisChannel)
	c.LogLevel = strings.ToLower(getEnv(EnvLogLevel, c.LogLevel))
	c.LogFormat = strings.ToLower(getEnv(EnvLogFormat, c.LogFormat))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfigFilePath returns the default config path: ~/.config/tora/config.json
func DefaultConfigFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "tora", "config.json"), nil
}
