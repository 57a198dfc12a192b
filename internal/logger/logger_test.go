package logger

import (
	"testing"
)

func TestNew(t *testing.T) {
	cfg := Config{
		Level:  "info",
		Format: "text",
	}
	logger := New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}

	cfg.Format = "json"
	logger = New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}

	// Invalid level should default to info
	cfg.Level = "invalid"
	logger = New(cfg)
	if logger == nil {
		t.Error("Expected logger to not be nil")
	}
}

func TestWithComponent(t *testing.T) {
	logger := Default()
	componentLogger := logger.WithComponent("reconciler")
	if componentLogger == nil {
		t.Error("Expected component logger to not be nil")
	}

	nested := componentLogger.WithComponent("nested")
	if nested == nil {
		t.Error("Expected nested component logger to not be nil")
	}
}

func TestWithTask(t *testing.T) {
	logger := Default()
	taskLogger := logger.WithTask(42, "https://example.com/v")
	if taskLogger == nil {
		t.Error("Expected task logger to not be nil")
	}
}

func TestLogLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error"}
	for _, level := range levels {
		logger := New(Config{Level: level, Format: "text"})
		if logger == nil {
			t.Errorf("Expected logger to not be nil for level %s", level)
		}
	}
}
