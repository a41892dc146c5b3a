// Package config resolves rcat settings. Values are layered: built-in
// defaults, then an optional Lua config file, then command line flags
// (applied by the caller).
package config

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/kk-code-lab/rcat/internal/highlight"
	"github.com/kk-code-lab/rcat/internal/style"
)

// DefaultMaxSize is the size above which files are shown without
// highlighting unless forced.
const DefaultMaxSize int64 = 16 << 20

// Pager modes.
const (
	PagerAuto   = "auto"
	PagerAlways = "always"
	PagerNever  = "never"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	pagerModes = []string{PagerAuto, PagerAlways, PagerNever}
	colorModes = []string{ColorAuto, ColorAlways, ColorNever}
)

// ErrInvalid marks configuration values that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

var (
	getenv      = os.Getenv
	userHomeDir = os.UserHomeDir
)

// Nvim holds settings for the nvim engine.
type Nvim struct {
	Binary      string
	Init        string
	RuntimePath string
	AppName     string
	// ConfigHome is exported to nvim as XDG_CONFIG_HOME.
	ConfigHome  string
}

// ExpandPaths returns n with "~" expanded in every path field.
func (n Nvim) ExpandPaths() (Nvim, error) {
	for _, field := range []*string{&n.Binary, &n.Init, &n.RuntimePath, &n.ConfigHome} {
		expanded, err := ExpandHome(*field)
		if err != nil {
			return n, err
		}
		*field = expanded
	}
	return n, nil
}

// Colors holds pager chrome colors as hex strings or color names.
type Colors struct {
	Gutter   string
	StatusFg string
	StatusBg string
	Error    string
}

// Config is the resolved configuration.
type Config struct {
	Theme          string
	Engine         string
	Pager          string
	Color          string
	Jobs           int
	MaxSize        int64
	Timeout        time.Duration
	StyleCacheSize int
	BestEffort     bool
	Force          bool
	Command        []string
	Nvim           Nvim
	Colors         Colors

	// Path is the config file that was loaded, empty when none was found.
	Path string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine:         highlight.EngineAuto,
		Pager:          PagerAuto,
		Color:          ColorAuto,
		MaxSize:        DefaultMaxSize,
		Timeout:        60 * time.Second,
		StyleCacheSize: style.DefaultCacheCapacity,
	}
}

// Load resolves the config file and layers it over the defaults. An
// explicit path (from --config) must exist; a missing default file is
// silently skipped.
func Load(explicit string) (Config, error) {
	cfg := Default()

	path, required, err := ResolvePath(explicit)
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, iofs.ErrNotExist) && !required:
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("config %s: %w", path, err)
	case info.IsDir():
		return cfg, fmt.Errorf("config %s: %w: is a directory", path, ErrInvalid)
	}

	if err := loadLua(path, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolvePath picks the config file: the explicit path, then $RCAT_CONFIG,
// then $XDG_CONFIG_HOME/rcat/config.lua, then ~/.config/rcat/config.lua.
// required reports whether the file must exist.
func ResolvePath(explicit string) (path string, required bool, err error) {
	if explicit != "" {
		path, err := ExpandHome(explicit)
		return path, true, err
	}
	if env := getenv("RCAT_CONFIG"); env != "" {
		path, err := ExpandHome(env)
		return path, true, err
	}
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "rcat", "config.lua"), false, nil
	}
	home, err := userHomeDir()
	if err != nil {
		// No home directory means no default config, not a failure.
		return "", false, nil
	}
	return filepath.Join(home, ".config", "rcat", "config.lua"), false, nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, path[1:]), nil
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(highlight.Engines, c.Engine) {
		errs = append(errs, fmt.Errorf("%w: engine %q (want one of %s)", ErrInvalid, c.Engine, strings.Join(highlight.Engines, ", ")))
	}
	if !slices.Contains(pagerModes, c.Pager) {
		errs = append(errs, fmt.Errorf("%w: pager %q (want one of %s)", ErrInvalid, c.Pager, strings.Join(pagerModes, ", ")))
	}
	if !slices.Contains(colorModes, c.Color) {
		errs = append(errs, fmt.Errorf("%w: color %q (want one of %s)", ErrInvalid, c.Color, strings.Join(colorModes, ", ")))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("%w: jobs must not be negative", ErrInvalid))
	}
	if c.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("%w: max_size must not be negative", ErrInvalid))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must not be negative", ErrInvalid))
	}
	if c.Engine == highlight.EngineCommand && len(c.Command) == 0 {
		errs = append(errs, fmt.Errorf("%w: engine %q needs a command", ErrInvalid, highlight.EngineCommand))
	}
	if _, err := c.Colors.Theme(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
