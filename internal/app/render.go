package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kk-code-lab/rcat/internal/config"
	fsutil "github.com/kk-code-lab/rcat/internal/fs"
	"github.com/kk-code-lab/rcat/internal/highlight"
	"github.com/kk-code-lab/rcat/internal/pipeline"
	"github.com/kk-code-lab/rcat/internal/ui/pager"
)

// renderFile highlights one file into the selected sink. name is what the
// user sees and what engines use for language detection.
func (app *Application) renderFile(ctx context.Context, path, name string) error {
	probe, err := fsutil.ProbeFile(path)
	if err != nil {
		return err
	}
	if !probe.Text {
		app.logger.Debug("copying raw content", "path", path, "mode", probe.Mode.String())
		return app.copyRaw(path)
	}

	paged, err := app.shouldPage(path)
	if err != nil {
		return err
	}
	colored := app.colorEnabled(paged)
	engine := app.engineFor(probe, colored)

	session, err := pipeline.Start(ctx, pipeline.Config{
		Invoker:     engine,
		Cache:       app.cache,
		Planner:     app.planner,
		Parallelism: app.cfg.Jobs,
		Timeout:     app.cfg.Timeout,
		Theme:       app.cfg.Theme,
		RuntimePath: app.cfg.Nvim.RuntimePath,
		Logger:      app.logger,
	}, pipeline.Input{Path: path, Name: name, Size: probe.Size})
	if err != nil {
		return err
	}
	defer session.Close()

	if paged {
		err = app.page(ctx, session, name)
	} else {
		err = pipeline.WriteAll(ctx, app.stdout, session.Buffer, pipeline.WriteOptions{
			StripEscapes: !colored,
			BestEffort:   app.cfg.BestEffort,
		})
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// engineFor drops to the plain engine when colors are off or the file is
// above the size ceiling. A user command is kept when colors are off since
// its output is stripped anyway.
func (app *Application) engineFor(probe fsutil.Probe, colored bool) highlight.Invoker {
	if !colored && app.engine.Name() != highlight.EngineCommand {
		return highlight.Plain{}
	}
	if app.cfg.MaxSize > 0 && probe.Size > app.cfg.MaxSize && !app.cfg.Force {
		app.logger.Debug("size ceiling exceeded",
			"path", probe.Path,
			"size", humanize.IBytes(uint64(probe.Size)),
			"max", humanize.IBytes(uint64(app.cfg.MaxSize)),
		)
		return highlight.Plain{}
	}
	return app.engine
}

func (app *Application) colorEnabled(paged bool) bool {
	switch app.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	return paged || app.term.isTTY
}

// shouldPage decides the sink. In auto mode the pager is used only when
// stdout is a terminal and the file has more lines than it has rows.
func (app *Application) shouldPage(path string) (bool, error) {
	switch app.cfg.Pager {
	case config.PagerAlways:
		return true, nil
	case config.PagerNever:
		return false, nil
	}
	if !app.term.isTTY {
		return false, nil
	}
	rows := app.term.rows()
	lines, err := fsutil.CountLinesUpTo(path, rows)
	if err != nil {
		return false, fmt.Errorf("%w: %v", pipeline.ErrIO, err)
	}
	return lines > rows, nil
}

func (app *Application) page(ctx context.Context, session *pipeline.Session, name string) error {
	screen, err := newScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	view, err := pager.New(screen, session.Buffer, pager.Options{
		Name:   name,
		Theme:  &app.theme,
		Logger: app.logger,
	})
	if err != nil {
		return err
	}

	runErr := view.Run(ctx)
	// Quitting stops outstanding engine calls.
	session.Close()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if failures := session.Buffer.Failures(); len(failures) > 0 && !app.cfg.BestEffort {
		return fmt.Errorf("%w: %w", pipeline.ErrChunkFailed, errors.Join(failures...))
	}
	return nil
}

func (app *Application) copyRaw(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrIO, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := io.Copy(app.stdout, f); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}
