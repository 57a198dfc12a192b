package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cesargomez89/downpour/internal/constants"
)

// Config holds all application configuration
type Config struct {
	Port            string
	DBPath          string
	DownloadsDir    string
	OutputFormat    string
	PlaylistFolders bool
	YTDLPPath       string
	MaxConcurrent   int
	LogLevel        string
	LogFormat       string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	home, _ := os.UserHomeDir()
	defaultDownload := filepath.Join(home, "Downloads/downpour")

	return &Config{
		Port:            getEnv("PORT", constants.DefaultPort),
		DBPath:          getEnv("DB_PATH", constants.DefaultDBPath),
		DownloadsDir:    getEnv("DOWNLOADS_DIR", defaultDownload),
		OutputFormat:    getEnv("OUTPUT_FORMAT", constants.DefaultFormat),
		PlaylistFolders: getEnvBool("PLAYLIST_FOLDERS", true),
		YTDLPPath:       getEnv("YTDLP_PATH", constants.DefaultYTDLPPath),
		MaxConcurrent:   getEnvInt("MAX_CONCURRENT", constants.DefaultConcurrency),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns detailed errors
func (c *Config) Validate() error {
	var errors []string

	if c.Port == "" {
		errors = append(errors, "PORT cannot be empty")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("PORT must be a valid number, got: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be between 1 and 65535, got: %d", port))
		}
	}

	if c.DBPath == "" {
		errors = append(errors, "DB_PATH cannot be empty")
	}

	if c.DownloadsDir == "" {
		errors = append(errors, "DOWNLOADS_DIR cannot be empty")
	}

	validFormats := map[string]bool{
		constants.FormatMP3:  true,
		constants.FormatM4A:  true,
		constants.FormatFLAC: true,
		constants.FormatMP4:  true,
	}
	if !validFormats[c.OutputFormat] {
		errors = append(errors, fmt.Sprintf("OUTPUT_FORMAT must be one of: mp3, m4a, flac, mp4, got: %s", c.OutputFormat))
	}

	if c.YTDLPPath == "" {
		errors = append(errors, "YTDLP_PATH cannot be empty")
	}

	if c.MaxConcurrent < 1 {
		errors = append(errors, fmt.Sprintf("MAX_CONCURRENT must be at least 1, got: %d", c.MaxConcurrent))
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: debug, info, warn, error, got: %s", c.LogLevel))
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.LogFormat] {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: text, json, got: %s", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
