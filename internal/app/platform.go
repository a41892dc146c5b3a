package app

import (
	"io"
	"os/exec"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// fallbackRows is used when the terminal height cannot be read.
const fallbackRows = 24

var (
	lookPath     = exec.LookPath
	newScreen    = tcell.NewScreen
	terminalSize = term.GetSize
	isTerminal   = func(fd uintptr) bool {
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
)

type terminal struct {
	isTTY bool
	fd    uintptr
}

func detectTerminal(w io.Writer) terminal {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return terminal{}
	}
	fd := f.Fd()
	return terminal{isTTY: isTerminal(fd), fd: fd}
}

func (t terminal) rows() int {
	if !t.isTTY {
		return fallbackRows
	}
	_, rows, err := terminalSize(int(t.fd))
	if err != nil || rows <= 0 {
		return fallbackRows
	}
	return rows
}
