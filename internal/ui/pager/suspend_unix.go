//go:build !windows

package pager

import (
	"github.com/gdamore/tcell/v2"
	"golang.org/x/sys/unix"
)

// stopProcess stops only this process; signalling the whole group would
// also stop a wrapper shell function that launched rcat.
var stopProcess = func() error {
	return unix.Kill(unix.Getpid(), unix.SIGTSTP)
}

func (p *Pager) suspend() {
	if err := p.screen.Suspend(); err != nil {
		p.logger.Debug("suspend failed", "err", err)
		return
	}
	if err := stopProcess(); err != nil {
		p.logger.Debug("stop failed", "err", err)
	}
	if err := p.screen.Resume(); err != nil {
		p.errMsg = "resume: " + err.Error()
		return
	}
	p.screen.EnableMouse(tcell.MouseButtonEvents)
	p.screen.HideCursor()
	p.view.Resize(p.screen.Size())
	p.screen.Sync()
}
