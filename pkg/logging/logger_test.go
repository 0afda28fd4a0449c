package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"opintel/pkg/config"
)

func TestInit(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tempDir := t.TempDir()
	serverLog := filepath.Join(tempDir, "server.log")
	requestLog := filepath.Join(tempDir, "requests.log")

	// A previous run's log must be rotated away.
	if err := os.WriteFile(serverLog, []byte("old run\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.LogConfig{
		Server:   config.LogSettings{Path: serverLog, Level: "DEBUG"},
		Requests: config.LogSettings{Path: requestLog, Level: "INFO"},
	}

	cleanup, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	slog.Info("Buffer ready", "year", 2023)
	RequestLogger.Info("GET /health")
	cleanup()

	if _, err := os.Stat(serverLog + ".old"); err != nil {
		t.Errorf("previous log was not rotated: %v", err)
	}

	data, err := os.ReadFile(serverLog)
	if err != nil {
		t.Fatalf("server log not created: %v", err)
	}
	if !strings.Contains(string(data), "Buffer ready") {
		t.Errorf("server log missing message, got %q", data)
	}

	data, err = os.ReadFile(requestLog)
	if err != nil {
		t.Fatalf("request log not created: %v", err)
	}
	if !strings.Contains(string(data), "GET /health") {
		t.Errorf("request log missing message, got %q", data)
	}

	if got := GlobalLogCapture.GetLastLine(); !strings.Contains(got, "Buffer ready") {
		t.Errorf("capture = %q, want last INFO line", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
