package textutil

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// TabWidth is the tab stop used when painting highlighted lines.
const TabWidth = 4

// GraphemeWidth returns the column width of a single grapheme cluster.
// Clusters that runewidth considers zero-width still occupy one cell.
func GraphemeWidth(cluster string) int {
	w := uniseg.StringWidth(cluster)
	if w <= 0 {
		w = runewidth.StringWidth(cluster)
	}
	if w <= 0 {
		return 1
	}
	return w
}

// DisplayWidth reports the printable width of text accounting for wide runes
// and multi-rune grapheme clusters.
func DisplayWidth(text string) int {
	width := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		width += GraphemeWidth(g.Str())
	}
	return width
}

// TruncateToWidth clips text to width columns, appending an ellipsis when
// anything was removed.
func TruncateToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if DisplayWidth(text) <= width {
		return text
	}

	const ellipsis = "…"
	if width == 1 {
		return ellipsis
	}

	target := width - 1
	var builder strings.Builder
	current := 0
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		w := GraphemeWidth(g.Str())
		if current+w > target {
			break
		}
		builder.WriteString(g.Str())
		current += w
	}
	builder.WriteString(ellipsis)
	return builder.String()
}

// Digits returns the number of decimal digits needed to print n (at least 1).
func Digits(n int) int {
	if n < 0 {
		n = -n
	}
	digits := 1
	for n >= 10 {
		n /= 10
		digits++
	}
	return digits
}
