// Package debuglog provides the opt-in debug logger. Output never goes to the
// terminal because it would corrupt pager frames; it is appended to a file.
package debuglog

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	envEnabled = "RCAT_DEBUG"
	envPath    = "RCAT_DEBUG_LOG"
)

// Options controls logger construction. Zero values fall back to the
// RCAT_DEBUG / RCAT_DEBUG_LOG environment variables.
type Options struct {
	Enabled bool
	Path    string
	Getenv  func(string) string
}

// New returns a logger and a close function. When debugging is disabled the
// logger discards everything.
func New(opts Options) (*slog.Logger, func() error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	enabled := opts.Enabled || isTruthy(getenv(envEnabled))
	if !enabled {
		return Discard(), func() error { return nil }
	}

	path := opts.Path
	if path == "" {
		path = getenv(envPath)
	}
	if path == "" {
		path = filepath.Join(os.TempDir(), "rcat-debug.log")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Discard(), func() error { return nil }
	}
	return NewWriter(f), f.Close
}

// NewWriter builds a debug-level text logger writing to w.
func NewWriter(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Discard returns a logger that drops all records.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
