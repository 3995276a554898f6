// Package telemetry provides structured logging for certiflow.
//
// Loggers are plain *slog.Logger handles created by [NewLogger] and passed
// explicitly into the engine, the objective manager and the dossier. Nothing
// in this package mutates the process-wide default logger, so concurrent test
// runs stay isolated.
package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps a configuration value to a slog level.
// Accepted values: debug, info, warn, error (case-insensitive). Default: info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w.
//
// The format selects the handler:
//   - "json": JSON lines, for log collection
//   - anything else: human-readable text (default)
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger when logger is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// OpenLogFile opens path for appending, creating parent directories.
// The caller owns the returned file and must close it.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("telemetry: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open log file: %w", err)
	}
	return f, nil
}

// WithRunID returns a logger annotated with run_id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithDossierID returns a logger annotated with dossier_id.
func WithDossierID(logger *slog.Logger, dossierID string) *slog.Logger {
	return logger.With("dossier_id", dossierID)
}

// WithStepID returns a logger annotated with step_id.
func WithStepID(logger *slog.Logger, stepID string) *slog.Logger {
	return logger.With("step_id", stepID)
}

// WithObjectiveID returns a logger annotated with objective_id.
func WithObjectiveID(logger *slog.Logger, objectiveID string) *slog.Logger {
	return logger.With("objective_id", objectiveID)
}
