package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"sftp-tools/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"chatty", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "info")

	logger.Debugw("hidden", "path", "/r/a")
	logger.Infow("Deleted file", "path", "/r/del.txt")
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug entry should be filtered at info level: %s", out)
	}
	if !strings.Contains(out, "Deleted file") || !strings.Contains(out, "/r/del.txt") {
		t.Errorf("Expected info entry with path field, got: %s", out)
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "sftp.log")
	cfg := &config.Config{Logging: config.LoggingCfg{Level: "info", File: logFile, RotationDays: 30}}

	logger, closeFn, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Infow("Uploaded", "local", "a/x.txt", "remote", "r/a/x.txt")
	closeFn()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("Log file entry is not JSON: %v (%s)", err, data)
	}
	if entry["msg"] != "Uploaded" || entry["remote"] != "r/a/x.txt" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}

func TestRotateLogsIfNeeded(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sftp.log")
	if err := os.WriteFile(logPath, []byte("old\n"), 0o644); err != nil {
		t.Fatalf("Failed to create log: %v", err)
	}
	old := time.Now().AddDate(0, 0, -40)
	if err := os.Chtimes(logPath, old, old); err != nil {
		t.Fatalf("Failed to age log: %v", err)
	}

	stale := filepath.Join(dir, "sftp.log.20200101-000000")
	if err := os.WriteFile(stale, []byte("stale\n"), 0o644); err != nil {
		t.Fatalf("Failed to create stale rotated log: %v", err)
	}
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Failed to age stale log: %v", err)
	}

	if err := rotateLogsIfNeeded(logPath, 30); err != nil {
		t.Fatalf("rotateLogsIfNeeded failed: %v", err)
	}

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Errorf("Expected %s to be rotated away", logPath)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("Expected stale rotated log to be pruned")
	}

	rotated := logPath + "." + old.Format("20060102-150405")
	if _, err := os.Stat(rotated); err != nil {
		t.Errorf("Expected freshly rotated log %s to be kept: %v", rotated, err)
	}
}

func TestRotateLogsSkipsFreshFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sftp.log")
	if err := os.WriteFile(logPath, []byte("fresh\n"), 0o644); err != nil {
		t.Fatalf("Failed to create log: %v", err)
	}

	if err := rotateLogsIfNeeded(logPath, 30); err != nil {
		t.Fatalf("rotateLogsIfNeeded failed: %v", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("Fresh log should not be rotated: %v", err)
	}
}
