package pager

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// run is a stretch of printable text sharing one style.
type run struct {
	text  string
	style tcell.Style
}

// decodeLine splits a rendered line into styled runs. SGR sequences update
// the current style; every other escape or control sequence is dropped so it
// can never reach the terminal.
func decodeLine(line string, base tcell.Style) []run {
	var runs []run
	current := base
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			runs = append(runs, run{text: text.String(), style: current})
			text.Reset()
		}
	}

	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == 0x1b:
			next, params, isSGR := scanEscape(line, i)
			if isSGR {
				flush()
				current = applySGR(current, base, params)
			}
			i = next
		case c == '\t':
			text.WriteByte(c)
			i++
		case c < 0x20 || c == 0x7f:
			i++
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return runs
}

// scanEscape returns the index just past the escape sequence starting at i,
// and the parameter string when the sequence is an SGR (CSI ... m).
func scanEscape(line string, i int) (int, string, bool) {
	if i+1 >= len(line) {
		return len(line), "", false
	}
	switch line[i+1] {
	case '[':
		j := i + 2
		for j < len(line) && (line[j] < 0x40 || line[j] > 0x7e) {
			j++
		}
		if j >= len(line) {
			return len(line), "", false
		}
		return j + 1, line[i+2 : j], line[j] == 'm'
	case ']', 'P', '_', '^':
		// string sequences end with BEL or ST
		for j := i + 2; j < len(line); j++ {
			if line[j] == 0x07 {
				return j + 1, "", false
			}
			if line[j] == 0x1b && j+1 < len(line) && line[j+1] == '\\' {
				return j + 2, "", false
			}
		}
		return len(line), "", false
	}
	return i + 2, "", false
}

func applySGR(style, base tcell.Style, params string) tcell.Style {
	if params == "" {
		return base
	}
	baseFg, baseBg, _ := base.Decompose()
	codes := strings.FieldsFunc(params, func(r rune) bool { return r == ';' || r == ':' })
	for k := 0; k < len(codes); k++ {
		n, err := strconv.Atoi(codes[k])
		if err != nil {
			continue
		}
		switch {
		case n == 0:
			style = base
		case n == 1:
			style = style.Bold(true)
		case n == 3:
			style = style.Italic(true)
		case n == 4:
			style = style.Underline(true)
		case n == 22:
			style = style.Bold(false).Dim(false)
		case n == 23:
			style = style.Italic(false)
		case n == 24:
			style = style.Underline(false)
		case n == 39:
			style = style.Foreground(baseFg)
		case n == 49:
			style = style.Background(baseBg)
		case n >= 30 && n <= 37:
			style = style.Foreground(tcell.PaletteColor(n - 30))
		case n >= 90 && n <= 97:
			style = style.Foreground(tcell.PaletteColor(n - 90 + 8))
		case n >= 40 && n <= 47:
			style = style.Background(tcell.PaletteColor(n - 40))
		case n >= 100 && n <= 107:
			style = style.Background(tcell.PaletteColor(n - 100 + 8))
		case n == 38 || n == 48:
			color, used := extendedColor(codes[k+1:])
			k += used
			if color == tcell.ColorDefault {
				continue
			}
			if n == 38 {
				style = style.Foreground(color)
			} else {
				style = style.Background(color)
			}
		}
	}
	return style
}

// extendedColor decodes the arguments following 38 or 48 and reports how many
// were consumed.
func extendedColor(args []string) (tcell.Color, int) {
	if len(args) == 0 {
		return tcell.ColorDefault, 0
	}
	switch args[0] {
	case "5":
		if len(args) < 2 {
			return tcell.ColorDefault, len(args)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 || n > 255 {
			return tcell.ColorDefault, 2
		}
		return tcell.PaletteColor(n), 2
	case "2":
		if len(args) < 4 {
			return tcell.ColorDefault, len(args)
		}
		var rgb [3]int32
		for i := range rgb {
			v, err := strconv.Atoi(args[i+1])
			if err != nil || v < 0 || v > 255 {
				return tcell.ColorDefault, 4
			}
			rgb[i] = int32(v)
		}
		return tcell.NewRGBColor(rgb[0], rgb[1], rgb[2]), 4
	}
	return tcell.ColorDefault, 1
}
