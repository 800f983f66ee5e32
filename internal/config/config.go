package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Backend
	APIBases []string // candidate base addresses, priority order

	// Timing
	ProbeTimeout   time.Duration // liveness check per candidate
	RequestTimeout time.Duration // metadata call, per attempt
	Debounce       time.Duration // detection input debounce
	RetryBaseDelay time.Duration // linear backoff unit
	MaxRetries     int           // extra attempts after the first

	// Download
	DownloadDir      string
	MaxPlaylistItems int

	// Server
	ServerPort string

	// Paths
	DatabaseFile string // $CONFIG_DIR/ygrab.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("API_BASES", "http://localhost:5000/api,http://127.0.0.1:5000/api")
	viper.SetDefault("PROBE_TIMEOUT_SECONDS", 3)
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	viper.SetDefault("DEBOUNCE_MS", 800)
	viper.SetDefault("RETRY_BASE_DELAY_MS", 500)
	viper.SetDefault("MAX_RETRIES", 2)
	viper.SetDefault("MAX_PLAYLIST_ITEMS", 10)
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "ygrab")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	downloadDir := viper.GetString("DOWNLOAD_DIR")
	if downloadDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		downloadDir = wd
	}

	config := &Config{
		APIBases: splitBases(viper.GetString("API_BASES")),

		ProbeTimeout:   time.Duration(viper.GetInt("PROBE_TIMEOUT_SECONDS")) * time.Second,
		RequestTimeout: time.Duration(viper.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,
		Debounce:       time.Duration(viper.GetInt("DEBOUNCE_MS")) * time.Millisecond,
		RetryBaseDelay: time.Duration(viper.GetInt("RETRY_BASE_DELAY_MS")) * time.Millisecond,
		MaxRetries:     viper.GetInt("MAX_RETRIES"),

		DownloadDir:      downloadDir,
		MaxPlaylistItems: viper.GetInt("MAX_PLAYLIST_ITEMS"),

		ServerPort: viper.GetString("SERVER_PORT"),

		DatabaseFile: filepath.Join(configDir, "ygrab.db"),

		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if len(config.APIBases) == 0 {
		return nil, fmt.Errorf("API_BASES is required")
	}
	if config.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative")
	}
	if config.MaxPlaylistItems < 1 {
		return nil, fmt.Errorf("MAX_PLAYLIST_ITEMS must be at least 1")
	}

	return config, nil
}

// splitBases parses the comma-separated candidate list, trimming trailing
// slashes so endpoint paths join cleanly
func splitBases(raw string) []string {
	var bases []string
	for _, part := range strings.Split(raw, ",") {
		base := strings.TrimRight(strings.TrimSpace(part), "/")
		if base != "" {
			bases = append(bases, base)
		}
	}
	return bases
}
