// Package style turns normalized color/attribute tuples into terminal escape
// sequences and caches the results for concurrent highlighting workers.
package style

import (
	"strconv"
	"strings"
)

// Reset clears every attribute set by a previous escape.
const Reset = "\x1b[0m"

// RGB is a 24-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex builds an RGB from a 0xRRGGBB integer.
func Hex(v uint32) RGB {
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}
}

// Descriptor is a normalized style. It is comparable and used as a cache key,
// so optional colors are expressed with HasFg/HasBg instead of pointers.
type Descriptor struct {
	Fg        RGB
	Bg        RGB
	HasFg     bool
	HasBg     bool
	Bold      bool
	Italic    bool
	Underline bool
}

// WithFg returns a copy of d with the foreground set.
func (d Descriptor) WithFg(c RGB) Descriptor {
	d.Fg = c
	d.HasFg = true
	return d
}

// WithBg returns a copy of d with the background set.
func (d Descriptor) WithBg(c RGB) Descriptor {
	d.Bg = c
	d.HasBg = true
	return d
}

// IsZero reports whether d carries no attributes and no colors.
func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

// Compile renders d as an SGR escape sequence. The order is fixed: reset,
// bold, italic, underline, foreground, background.
func Compile(d Descriptor) string {
	parts := make([]string, 0, 6)
	parts = append(parts, "0")
	if d.Bold {
		parts = append(parts, "1")
	}
	if d.Italic {
		parts = append(parts, "3")
	}
	if d.Underline {
		parts = append(parts, "4")
	}
	if d.HasFg {
		parts = append(parts, trueColor(38, d.Fg))
	}
	if d.HasBg {
		parts = append(parts, trueColor(48, d.Bg))
	}
	return "\x1b[" + strings.Join(parts, ";") + "m"
}

func trueColor(selector int, c RGB) string {
	var b strings.Builder
	b.Grow(16)
	b.WriteString(strconv.Itoa(selector))
	b.WriteString(";2;")
	b.WriteString(strconv.Itoa(int(c.R)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(c.G)))
	b.WriteByte(';')
	b.WriteString(strconv.Itoa(int(c.B)))
	return b.String()
}
