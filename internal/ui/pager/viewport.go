package pager

import "github.com/kk-code-lab/rcat/internal/textutil"

// Viewport is the visible window over the line buffer. It is owned by the
// pager loop and never shared.
type Viewport struct {
	Offset        int
	ContentHeight int
	Columns       int
	Rows          int
	GutterWidth   int
	Total         int
}

// Resize applies a new terminal size. One row is reserved for the status line.
func (v *Viewport) Resize(columns, rows int) {
	v.Columns = max(columns, 0)
	v.Rows = max(rows, 0)
	v.ContentHeight = max(v.Rows-1, 0)
	v.clamp()
}

// SetTotal records the number of buffered lines and reports whether the
// gutter width changed.
func (v *Viewport) SetTotal(total int) bool {
	v.Total = max(total, 0)
	width := textutil.Digits(v.Total) + 1
	changed := width != v.GutterWidth
	v.GutterWidth = width
	v.clamp()
	return changed
}

// MaxOffset is the largest offset that still fills the content area.
func (v Viewport) MaxOffset() int {
	return max(v.Total-v.ContentHeight, 0)
}

// ScrollBy moves the window by delta lines and reports whether it moved.
func (v *Viewport) ScrollBy(delta int) bool {
	return v.ScrollTo(v.Offset + delta)
}

// ScrollTo moves the window so that line offset is at the top.
func (v *Viewport) ScrollTo(offset int) bool {
	before := v.Offset
	v.Offset = offset
	v.clamp()
	return v.Offset != before
}

func (v *Viewport) clamp() {
	v.Offset = min(max(v.Offset, 0), v.MaxOffset())
}

// VisibleRange returns the zero-based half-open range of lines on screen.
func (v Viewport) VisibleRange() (int, int) {
	end := min(v.Offset+v.ContentHeight, v.Total)
	return v.Offset, max(end, v.Offset)
}

// Percent reports how far through the buffer the bottom of the window is.
func (v Viewport) Percent() int {
	if v.Total == 0 {
		return 100
	}
	_, end := v.VisibleRange()
	return end * 100 / v.Total
}

func (v Viewport) halfPage() int {
	return max(v.ContentHeight/2, 1)
}

func (v Viewport) page() int {
	return max(v.ContentHeight, 1)
}

// apply runs a navigation command and reports whether the window moved.
func (v *Viewport) apply(cmd command) bool {
	switch cmd {
	case cmdLineDown:
		return v.ScrollBy(1)
	case cmdLineUp:
		return v.ScrollBy(-1)
	case cmdPageDown:
		return v.ScrollBy(v.page())
	case cmdPageUp:
		return v.ScrollBy(-v.page())
	case cmdHalfDown:
		return v.ScrollBy(v.halfPage())
	case cmdHalfUp:
		return v.ScrollBy(-v.halfPage())
	case cmdTop:
		return v.ScrollTo(0)
	case cmdBottom:
		return v.ScrollTo(v.MaxOffset())
	case cmdWheelDown:
		return v.ScrollBy(wheelStep)
	case cmdWheelUp:
		return v.ScrollBy(-wheelStep)
	}
	return false
}
