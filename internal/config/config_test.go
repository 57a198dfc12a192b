package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Port:          "8080",
		DBPath:        "test.db",
		DownloadsDir:  "/tmp/downloads",
		OutputFormat:  "mp3",
		YTDLPPath:     "yt-dlp",
		MaxConcurrent: 2,
		LogLevel:      "info",
		LogFormat:     "text",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.OutputFormat != "mp3" {
		t.Errorf("Expected default format mp3, got %s", cfg.OutputFormat)
	}
	if cfg.MaxConcurrent != 2 {
		t.Errorf("Expected default concurrency 2, got %d", cfg.MaxConcurrent)
	}
	if !cfg.PlaylistFolders {
		t.Error("Expected playlist folders enabled by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("OUTPUT_FORMAT", "flac")
	t.Setenv("MAX_CONCURRENT", "4")
	t.Setenv("PLAYLIST_FOLDERS", "false")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.OutputFormat != "flac" {
		t.Errorf("Expected format flac, got %s", cfg.OutputFormat)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("Expected concurrency 4, got %d", cfg.MaxConcurrent)
	}
	if cfg.PlaylistFolders {
		t.Error("Expected playlist folders disabled")
	}
}

func TestValidate_Valid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Expected valid config, got: %v", err)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "not-a-port"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for bad port")
	}
	if !strings.Contains(err.Error(), "PORT") {
		t.Errorf("Expected PORT in error, got: %v", err)
	}

	cfg.Port = "70000"
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for out-of-range port")
	}
}

func TestValidate_BadFormat(t *testing.T) {
	cfg := validConfig()
	cfg.OutputFormat = "ogg"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error for unsupported format")
	}
	if !strings.Contains(err.Error(), "OUTPUT_FORMAT") {
		t.Errorf("Expected OUTPUT_FORMAT in error, got: %v", err)
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors for empty config")
	}
	for _, want := range []string{"PORT", "DB_PATH", "DOWNLOADS_DIR", "MAX_CONCURRENT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %s in aggregated error, got: %v", want, err)
		}
	}
}
