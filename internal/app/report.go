package app

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/kk-code-lab/rcat/internal/pipeline"
	"github.com/kk-code-lab/rcat/internal/textutil"
)

func (app *Application) reportError(err error) {
	fmt.Fprintln(app.stderr, FormatError(app.stderr, err))
}

// FormatError renders err for w with a styled "rcat:" prefix. Styling is
// dropped when w is not a color terminal.
func FormatError(w io.Writer, err error) string {
	prefix := lipgloss.NewRenderer(w).NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("9")).
		Render("rcat:")
	return prefix + " " + textutil.SanitizeTerminalText(err.Error())
}

// spoolStdin copies r to a temporary file so it can be planned like any
// other input.
func spoolStdin(r io.Reader, dir string) (string, func(), error) {
	f, err := os.CreateTemp(dir, "rcat-stdin-*")
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", pipeline.ErrIO, err)
	}
	cleanup := func() {
		_ = os.Remove(f.Name())
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("%w: spool: %v", pipeline.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("%w: spool: %v", pipeline.ErrIO, err)
	}
	return f.Name(), cleanup, nil
}
