package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config captures the settings used to build the process logger.
type Config struct {
	// Level is the textual level (trace, debug, info, warn, error).
	Level string
	// Format selects json or text output.
	Format string
	// AddSource toggles source attribution.
	AddSource bool
	// Directory receives one log file per UTC day; empty keeps stdout only.
	Directory string
}

// LevelTrace sits below debug for per-frame stream logging.
const LevelTrace = slog.LevelDebug - 2

// ParseLevel converts textual levels into slog levels, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// New builds a slog.Logger writing to w.
func New(w io.Writer, cfg Config) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level), AddSource: cfg.AddSource}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the process logger writing to stdout and, when a directory is
// configured, to <dir>/<YYYY-MM-DD>.log. The std log package is redirected to
// the same writer. The returned closer releases the file.
func Setup(cfg Config) (io.Closer, *slog.Logger, error) {
	if strings.TrimSpace(cfg.Directory) == "" {
		return nopCloser{}, New(os.Stdout, cfg), nil
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	name := filepath.Join(cfg.Directory, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")
	return file, New(writer, cfg), nil
}
