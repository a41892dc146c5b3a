// Package app wires configuration, the highlighting pipeline and the output
// sinks into the rcat command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kk-code-lab/rcat/internal/config"
	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/kk-code-lab/rcat/internal/highlight"
	"github.com/kk-code-lab/rcat/internal/pipeline"
	"github.com/kk-code-lab/rcat/internal/style"
	"github.com/kk-code-lab/rcat/internal/ui/pager"
)

// StdinName is the path argument that selects standard input.
const StdinName = "-"

// Options configures an Application. Nil streams default to the process
// streams.
type Options struct {
	Config config.Config
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// TempDir holds chunk artifacts and stdin spools; os.TempDir when empty.
	TempDir string
}

// Application renders files to the terminal.
type Application struct {
	cfg     config.Config
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	logger  *slog.Logger
	tempDir string

	cache   *style.Cache
	locator *highlight.Locator
	engine  highlight.Invoker
	planner *pipeline.Planner
	theme   pager.Theme
	term    terminal
}

// New validates the configuration and builds the shared collaborators: one
// style cache and one executable locator for the whole process.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	theme, err := cfg.Colors.Theme()
	if err != nil {
		return nil, err
	}

	app := &Application{
		cfg:     cfg,
		stdin:   opts.Stdin,
		stdout:  opts.Stdout,
		stderr:  opts.Stderr,
		logger:  debuglog.OrDiscard(opts.Logger),
		tempDir: opts.TempDir,
		cache:   style.NewCache(cfg.StyleCacheSize),
		locator: highlight.NewLocator(lookPath),
		theme:   theme,
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	if app.tempDir == "" {
		app.tempDir = os.TempDir()
	}
	app.term = detectTerminal(app.stdout)

	if app.cfg.Nvim, err = cfg.Nvim.ExpandPaths(); err != nil {
		return nil, err
	}
	nvim := app.cfg.Nvim
	app.engine, err = highlight.Select(cfg.Engine, highlight.Options{
		Locator: app.locator,
		Nvim: highlight.NvimOptions{
			Binary:     nvim.Binary,
			Init:       nvim.Init,
			AppName:    nvim.AppName,
			ConfigHome: nvim.ConfigHome,
			ScriptDir:  app.tempDir,
		},
		Command: cfg.Command,
		Logger:  app.logger,
	})
	if err != nil {
		return nil, err
	}
	app.planner = pipeline.NewPlanner(app.tempDir, app.logger)
	app.logger.Debug("application ready",
		"engine", app.engine.Name(),
		"config", cfg.Path,
		"terminal", app.term.isTTY,
	)
	return app, nil
}

// Close releases engine resources such as generated scripts.
func (app *Application) Close() error {
	if closer, ok := app.engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Run renders every path in order. A failing file does not stop the
// remaining ones; each failure is reported on stderr and the joined error is
// returned. An empty list reads standard input.
func (app *Application) Run(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		paths = []string{StdinName}
	}
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := app.renderPath(ctx, path); err != nil {
			app.reportError(err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *Application) renderPath(ctx context.Context, path string) error {
	if path != StdinName {
		return app.renderFile(ctx, path, path)
	}
	spool, cleanup, err := spoolStdin(app.stdin, app.tempDir)
	if err != nil {
		return fmt.Errorf("stdin: %w", err)
	}
	defer cleanup()
	return app.renderFile(ctx, spool, "stdin")
}
