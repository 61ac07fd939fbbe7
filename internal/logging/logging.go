// Package logging builds the zap loggers used by the sftp-tools commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sftp-tools/internal/config"
)

// Logger is the subset of *zap.SugaredLogger the traversal code depends on.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// New creates the console logger and, when cfg.Logging.File is set, tees
// JSON entries into that file. The returned func flushes and closes the
// file and must be called before exit.
func New(cfg *config.Config) (*zap.SugaredLogger, func(), error) {
	level := ParseLevel(cfg.Logging.Level)
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(os.Stdout), level),
	}

	var (
		file     *os.File
		warnings []string
	)
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		if err := rotateLogsIfNeeded(cfg.Logging.File, cfg.Logging.RotationDays); err != nil {
			warnings = append(warnings, err.Error())
		}

		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", cfg.Logging.File, err)
		}
		file = f
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(f), level))
	}

	sugar := zap.New(zapcore.NewTee(cores...)).Sugar()
	for _, w := range warnings {
		sugar.Warnw("log rotation failed", "error", w)
	}

	closeFn := func() {
		_ = sugar.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return sugar, closeFn, nil
}

// NewWriter builds a console logger writing to w. Used by tests and by the
// history CLI, which never writes a log file.
func NewWriter(w io.Writer, level string) *zap.SugaredLogger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.AddSync(w), ParseLevel(level))
	return zap.New(core).Sugar()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.CallerKey = ""
	enc.StacktraceKey = ""
	return enc
}

// rotateLogsIfNeeded renames the log file once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int) error {
	info, err := os.Stat(logPath)
	if err != nil {
		// Nothing to rotate yet
		return nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if !info.ModTime().Before(cutoffTime) {
		return nil
	}

	timestamp := info.ModTime().Format("20060102-150405")
	rotatedPath := logPath + "." + timestamp
	if err := os.Rename(logPath, rotatedPath); err != nil {
		return fmt.Errorf("rotate log file: %w", err)
	}
	// Rotated files age from the moment they were rotated
	now := time.Now()
	if err := os.Chtimes(rotatedPath, now, now); err != nil {
		return fmt.Errorf("touch rotated log file: %w", err)
	}

	return cleanupOldLogs(logPath, rotationDays)
}

// cleanupOldLogs removes rotated log files older than rotation days
func cleanupOldLogs(logPath string, rotationDays int) error {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return err
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)

	var firstErr error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("remove old log file %s: %w", fullPath, err)
			}
		}
	}
	return firstErr
}
