package pager

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/kk-code-lab/rcat/internal/textutil"
	"golang.org/x/text/unicode/norm"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Theme holds the colors of the pager chrome. Line content keeps the colors
// encoded in its escape sequences.
type Theme struct {
	Gutter   tcell.Color
	StatusFg tcell.Color
	StatusBg tcell.Color
	Error    tcell.Color
}

// DefaultTheme returns the built-in pager colors.
func DefaultTheme() Theme {
	return Theme{
		Gutter:   tcell.Color244,
		StatusFg: tcell.Color234,
		StatusBg: tcell.Color252,
		Error:    tcell.Color196,
	}
}

func displayName(name string) string {
	if name == "" {
		return "-"
	}
	return textutil.SanitizeTerminalText(norm.NFC.String(name))
}

// statusText builds the left part of the status line.
func statusText(name string, v Viewport, loading bool, spinner int) string {
	first, end := v.VisibleRange()
	if end > first {
		first++
	}
	state := "(END)"
	if loading {
		state = spinnerFrames[spinner%len(spinnerFrames)] + " loading"
	}
	return fmt.Sprintf("%s  %d-%d/%d  %d%%  %s", name, first, end, v.Total, v.Percent(), state)
}

func (p *Pager) drawStatus() {
	y := p.view.Rows - 1
	if y < 0 {
		return
	}
	width := p.view.Columns
	base := tcell.StyleDefault.Foreground(p.theme.StatusFg).Background(p.theme.StatusBg)
	for x := 0; x < width; x++ {
		p.screen.SetContent(x, y, ' ', nil, base)
	}

	text := statusText(p.name, p.view, !p.source.Finished(), p.spinner)
	x := p.drawText(0, y, width, " "+text, base)
	if p.errMsg != "" && x < width {
		msg := textutil.TruncateToWidth("  "+p.errMsg, width-x)
		p.drawText(x, y, width, msg, base.Foreground(p.theme.Error).Bold(true))
	}
}
