//go:build windows

package pager

// There is no job control on Windows; Ctrl-Z only redraws.
func (p *Pager) suspend() {}
