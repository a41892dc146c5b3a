// Package pager shows rendered lines in a full-screen terminal view while the
// highlighter is still producing them.
package pager

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/kk-code-lab/rcat/internal/textutil"
	"github.com/rivo/uniseg"
)

const (
	// PollTimeout bounds how long one loop iteration waits for input before
	// draining newly released lines.
	PollTimeout     = 30 * time.Millisecond
	spinnerInterval = 80 * time.Millisecond
)

// Source feeds lines to the pager. It is drained from the pager loop only.
type Source interface {
	// Poll returns lines released since the previous call without blocking.
	Poll() []string
	Finished() bool
	Failures() []error
}

// Options configures a Pager.
type Options struct {
	Name   string
	Theme  *Theme
	Logger *slog.Logger
}

// Pager is an interactive, read-only line viewer.
type Pager struct {
	screen tcell.Screen
	source Source
	name   string
	theme  Theme
	logger *slog.Logger

	lines    []string
	view     Viewport
	finished bool
	failures int
	errMsg   string
	spinner  int
	lastSpin time.Time
	quit     bool
}

// New initializes screen (alternate screen, raw input, hidden cursor) and
// returns a pager reading from source. Run must be called to restore the
// terminal.
func New(screen tcell.Screen, source Source, opts Options) (*Pager, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	screen.SetStyle(tcell.StyleDefault)
	screen.HideCursor()
	screen.EnableMouse(tcell.MouseButtonEvents)

	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	p := &Pager{
		screen: screen,
		source: source,
		name:   displayName(opts.Name),
		theme:  theme,
		logger: debuglog.OrDiscard(opts.Logger),
	}
	p.view.SetTotal(0)
	p.view.Resize(screen.Size())
	return p, nil
}

// Viewport returns the current window.
func (p *Pager) Viewport() Viewport {
	return p.view
}

// Lines returns the buffered lines.
func (p *Pager) Lines() []string {
	return p.lines
}

// Run drives the pager until the user quits or ctx is done. The terminal is
// restored on every exit path; a panic is re-raised after the restore.
func (p *Pager) Run(ctx context.Context) error {
	stop := make(chan struct{})
	defer func() {
		close(stop)
		r := recover()
		p.screen.Fini()
		if r != nil {
			panic(r)
		}
	}()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-stop:
				return
			}
		}
	}()

	timer := time.NewTimer(PollTimeout)
	defer timer.Stop()

	dirty := true
	for !p.quit {
		if p.drain() {
			dirty = true
		}
		if p.tick(time.Now()) {
			dirty = true
		}
		if dirty {
			p.draw()
			dirty = false
		}

		timer.Reset(PollTimeout)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if p.handleEvent(ev) {
				dirty = true
			}
		case <-timer.C:
		}
	}
	p.logger.Debug("pager quit", "lines", len(p.lines), "finished", p.finished)
	return nil
}

// drain appends newly released lines and reports whether anything visible
// changed.
func (p *Pager) drain() bool {
	changed := false
	if lines := p.source.Poll(); len(lines) > 0 {
		p.lines = append(p.lines, lines...)
		p.view.SetTotal(len(p.lines))
		changed = true
	}
	if finished := p.source.Finished(); finished != p.finished {
		p.finished = finished
		changed = true
	}
	if failures := p.source.Failures(); len(failures) != p.failures {
		p.failures = len(failures)
		p.errMsg = failureMessage(failures)
		changed = true
	}
	return changed
}

func failureMessage(failures []error) string {
	if len(failures) == 0 {
		return ""
	}
	last := textutil.SanitizeTerminalText(failures[len(failures)-1].Error())
	if len(failures) == 1 {
		return "error: " + last
	}
	return fmt.Sprintf("%d errors, last: %s", len(failures), last)
}

func (p *Pager) tick(now time.Time) bool {
	if p.finished || now.Sub(p.lastSpin) < spinnerInterval {
		return false
	}
	p.spinner++
	p.lastSpin = now
	return true
}

func (p *Pager) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		p.view.Resize(ev.Size())
		p.screen.Sync()
		return true
	case *tcell.EventKey:
		return p.execute(commandForKey(ev))
	case *tcell.EventMouse:
		return p.execute(commandForMouse(ev))
	case *tcell.EventInterrupt:
		return true
	}
	return false
}

func (p *Pager) execute(cmd command) bool {
	switch cmd {
	case cmdNone:
		return false
	case cmdQuit:
		p.quit = true
		return false
	case cmdSuspend:
		p.suspend()
		return true
	}
	return p.view.apply(cmd)
}

func (p *Pager) draw() {
	p.screen.Clear()

	gutter := p.view.GutterWidth
	if gutter >= p.view.Columns {
		gutter = 0
	}
	gutterStyle := tcell.StyleDefault.Foreground(p.theme.Gutter)

	start, end := p.view.VisibleRange()
	for idx := start; idx < end; idx++ {
		y := idx - start
		if gutter > 0 {
			num := strconv.Itoa(idx + 1)
			p.drawText(0, y, gutter-1, num, gutterStyle)
		}
		p.drawLine(gutter, y, p.lines[idx])
	}

	p.drawStatus()
	p.screen.Show()
}

// drawLine paints one rendered line starting at column x0, expanding tabs
// relative to x0 and clipping at the right edge.
func (p *Pager) drawLine(x0, y int, line string) {
	col := 0
	for _, r := range decodeLine(line, tcell.StyleDefault) {
		g := uniseg.NewGraphemes(r.text)
		for g.Next() {
			cluster := g.Str()
			if cluster == "\t" {
				spaces := textutil.TabWidth - col%textutil.TabWidth
				for i := 0; i < spaces && x0+col < p.view.Columns; i++ {
					p.screen.SetContent(x0+col, y, ' ', nil, r.style)
					col++
				}
				if x0+col >= p.view.Columns {
					return
				}
				continue
			}
			w := textutil.GraphemeWidth(cluster)
			if x0+col+w > p.view.Columns {
				return
			}
			runes := g.Runes()
			p.screen.SetContent(x0+col, y, runes[0], runes[1:], r.style)
			col += w
		}
	}
}

// drawText paints plain text and returns the column after it.
func (p *Pager) drawText(x, y, maxX int, text string, style tcell.Style) int {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		w := textutil.GraphemeWidth(g.Str())
		if x+w > maxX {
			break
		}
		runes := g.Runes()
		p.screen.SetContent(x, y, runes[0], runes[1:], style)
		x += w
	}
	return x
}
