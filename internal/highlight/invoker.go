// Package highlight wraps the engines that color one chunk artifact at a time.
//
// An engine receives the absolute path of a text artifact whose extension
// matches the original file and returns either pre-colored bytes or
// structured per-line segments. Structured output is turned into escape
// sequences locally through a shared style.Cache.
package highlight

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/kk-code-lab/rcat/internal/style"
)

// ErrCollaborator marks failures of the highlighting engine itself: non-zero
// exit, timeouts, or output that cannot be parsed.
var ErrCollaborator = errors.New("highlighter failed")

// Invoker highlights a single artifact synchronously.
type Invoker interface {
	Name() string
	Highlight(ctx context.Context, req Request) (Output, error)
}

// Request describes one engine call.
type Request struct {
	// Path is the artifact to highlight.
	Path string
	// Name is the original file name, used for language detection when the
	// artifact name alone is not enough (files without extension).
	Name        string
	Theme       string
	RuntimePath string
}

// Segment is a run of text sharing one style.
type Segment struct {
	Text   string
	Style  style.Descriptor
	Styled bool
}

// Output is either Raw pre-colored bytes or structured Lines.
type Output struct {
	Raw   []byte
	Lines [][]Segment
}

// Render converts the output to rendered lines without terminators.
func (o Output) Render(cache *style.Cache) []string {
	if o.Lines != nil {
		rendered := make([]string, len(o.Lines))
		for i, segments := range o.Lines {
			rendered[i] = renderSegments(segments, cache)
		}
		return rendered
	}
	return SplitLines(o.Raw)
}

func renderSegments(segments []Segment, cache *style.Cache) string {
	var b strings.Builder
	styled := false
	for _, seg := range segments {
		if seg.Styled {
			b.WriteString(cache.Escape(seg.Style))
			styled = true
		}
		b.WriteString(seg.Text)
	}
	if styled {
		b.WriteString(style.Reset)
	}
	return b.String()
}

// SplitLines splits raw output on newlines, dropping carriage returns and the
// empty element after a final terminator.
func SplitLines(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	parts := bytes.Split(raw, []byte("\n"))
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = string(bytes.TrimSuffix(part, []byte("\r")))
	}
	return lines
}
