package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	apppkg "github.com/kk-code-lab/rcat/internal/app"
	"github.com/kk-code-lab/rcat/internal/config"
	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/spf13/cobra"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// usageError marks problems with flags, arguments or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// errFilesFailed is returned after per-file failures were already reported.
var errFilesFailed = errors.New("one or more files failed")

type flags struct {
	force      bool
	pager      string
	theme      string
	engine     string
	configPath string
	jobs       int
	color      string
	bestEffort bool
	maxSize    int64
}

func main() {
	tcell.SetEncodingFallback(tcell.EncodingFallbackUTF8)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCommand(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errFilesFailed):
		return exitFailure
	}
	fmt.Fprintln(stderr, apppkg.FormatError(stderr, err))
	return exitUsage
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "rcat [flags] [FILE...]",
		Short: "Print files with syntax highlighting, paging long output",
		Long: `rcat prints files with syntax highlighting. Files are split into chunks that
are highlighted in parallel and printed in order as soon as they are ready.
Output longer than the terminal opens in a pager that is usable while
highlighting is still running. With no FILE, or when FILE is -, standard
input is read.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args, stdin, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	fl := cmd.Flags()
	fl.BoolVarP(&f.force, "force", "f", false, "highlight files above the size ceiling")
	fl.StringVarP(&f.pager, "pager", "p", config.PagerAuto, "pager mode: auto, always, never")
	fl.StringVarP(&f.theme, "theme", "t", "", "colorscheme passed to the engine")
	fl.StringVarP(&f.engine, "engine", "e", "auto", "highlighter: auto, nvim, chroma, command, plain")
	fl.StringVarP(&f.configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/rcat/config.lua)")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "parallel highlighter processes (default: number of CPUs)")
	fl.StringVar(&f.color, "color", config.ColorAuto, "color output: auto, always, never")
	fl.BoolVar(&f.bestEffort, "best-effort", false, "exit 0 even when some files or chunks fail")
	fl.Int64Var(&f.maxSize, "max-size", config.DefaultMaxSize, "size ceiling in bytes above which highlighting is skipped")
	return cmd
}

func run(cmd *cobra.Command, f flags, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return usageError{err}
	}
	applyFlags(&cfg, f, cmd.Flags().Changed)
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}

	logger, closeLog := debuglog.New(debuglog.Options{})
	defer func() {
		_ = closeLog()
	}()

	app, err := apppkg.New(apppkg.Options{
		Config: cfg,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Logger: logger,
	})
	if err != nil {
		return usageError{err}
	}
	defer func() {
		_ = app.Close()
	}()

	if err := app.Run(cmd.Context(), args); err != nil {
		logger.Debug("run finished with errors", "err", err)
		if cfg.BestEffort {
			return nil
		}
		return errFilesFailed
	}
	return nil
}

// applyFlags layers explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Config, f flags, changed func(string) bool) {
	if changed("force") {
		cfg.Force = f.force
	}
	if changed("pager") {
		cfg.Pager = f.pager
	}
	if changed("theme") {
		cfg.Theme = f.theme
	}
	if changed("engine") {
		cfg.Engine = f.engine
	}
	if changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if changed("color") {
		cfg.Color = f.color
	}
	if changed("best-effort") {
		cfg.BestEffort = f.bestEffort
	}
	if changed("max-size") {
		cfg.MaxSize = f.maxSize
	}
}
