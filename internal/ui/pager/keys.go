package pager

import "github.com/gdamore/tcell/v2"

type command int

const (
	cmdNone command = iota
	cmdLineDown
	cmdLineUp
	cmdPageDown
	cmdPageUp
	cmdHalfDown
	cmdHalfUp
	cmdTop
	cmdBottom
	cmdWheelDown
	cmdWheelUp
	cmdQuit
	cmdSuspend
)

const wheelStep = 3

var runeCommands = map[rune]command{
	'j': cmdLineDown,
	'k': cmdLineUp,
	' ': cmdPageDown,
	'f': cmdPageDown,
	'b': cmdPageUp,
	'd': cmdHalfDown,
	'u': cmdHalfUp,
	'g': cmdTop,
	'<': cmdTop,
	'G': cmdBottom,
	'>': cmdBottom,
	'q': cmdQuit,
	'Q': cmdQuit,
}

var keyCommands = map[tcell.Key]command{
	tcell.KeyDown:   cmdLineDown,
	tcell.KeyEnter:  cmdLineDown,
	tcell.KeyCtrlE:  cmdLineDown,
	tcell.KeyCtrlN:  cmdLineDown,
	tcell.KeyUp:     cmdLineUp,
	tcell.KeyCtrlY:  cmdLineUp,
	tcell.KeyCtrlP:  cmdLineUp,
	tcell.KeyPgDn:   cmdPageDown,
	tcell.KeyCtrlF:  cmdPageDown,
	tcell.KeyPgUp:   cmdPageUp,
	tcell.KeyCtrlB:  cmdPageUp,
	tcell.KeyCtrlD:  cmdHalfDown,
	tcell.KeyCtrlU:  cmdHalfUp,
	tcell.KeyHome:   cmdTop,
	tcell.KeyEnd:    cmdBottom,
	tcell.KeyEscape: cmdQuit,
	tcell.KeyCtrlC:  cmdQuit,
	tcell.KeyCtrlZ:  cmdSuspend,
}

func commandForKey(ev *tcell.EventKey) command {
	if ev.Key() == tcell.KeyRune {
		if ev.Modifiers()&(tcell.ModCtrl|tcell.ModAlt) != 0 {
			return cmdNone
		}
		return runeCommands[ev.Rune()]
	}
	return keyCommands[ev.Key()]
}

func commandForMouse(ev *tcell.EventMouse) command {
	buttons := ev.Buttons()
	switch {
	case buttons&tcell.WheelDown != 0:
		return cmdWheelDown
	case buttons&tcell.WheelUp != 0:
		return cmdWheelUp
	}
	return cmdNone
}
