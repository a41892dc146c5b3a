package pager

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestDecodeLineStyles(t *testing.T) {
	base := tcell.StyleDefault
	runs := decodeLine("\x1b[0;1;38;2;255;0;0mred\x1b[0m plain", base)
	if len(runs) != 2 || runs[0].text != "red" || runs[1].text != " plain" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	fg, _, attrs := runs[0].style.Decompose()
	if fg != tcell.NewRGBColor(255, 0, 0) || attrs&tcell.AttrBold == 0 {
		t.Fatalf("first run fg=%v attrs=%v", fg, attrs)
	}
	if runs[1].style != base {
		t.Fatalf("reset should restore the base style")
	}
}

func TestApplySGR(t *testing.T) {
	base := tcell.StyleDefault
	tests := []struct {
		name   string
		params string
		fg     tcell.Color
		bg     tcell.Color
		attrs  tcell.AttrMask
	}{
		{"palette fg", "31", tcell.PaletteColor(1), tcell.ColorDefault, 0},
		{"bright bg", "102", tcell.ColorDefault, tcell.PaletteColor(10), 0},
		{"256 fg", "38;5;196", tcell.PaletteColor(196), tcell.ColorDefault, 0},
		{"truecolor bg", "48;2;1;2;3", tcell.ColorDefault, tcell.NewRGBColor(1, 2, 3), 0},
		{"italic underline", "3;4", tcell.ColorDefault, tcell.ColorDefault, tcell.AttrItalic | tcell.AttrUnderline},
		{"bold off", "1;22", tcell.ColorDefault, tcell.ColorDefault, 0},
		{"default fg", "31;39", tcell.ColorDefault, tcell.ColorDefault, 0},
		{"default bg", "41;49", tcell.ColorDefault, tcell.ColorDefault, 0},
		{"truncated truecolor", "38;2;1", tcell.ColorDefault, tcell.ColorDefault, 0},
	}
	for _, tt := range tests {
		fg, bg, attrs := applySGR(base, base, tt.params).Decompose()
		if fg != tt.fg || bg != tt.bg || attrs != tt.attrs {
			t.Fatalf("%s: got fg=%v bg=%v attrs=%v", tt.name, fg, bg, attrs)
		}
	}
}

func TestDecodeLineDropsOtherSequences(t *testing.T) {
	tests := map[string]string{
		"erase line":    "a\x1b[2Kb",
		"osc title bel": "a\x1b]0;title\x07b",
		"osc title st":  "a\x1b]8;;http://x\x1b\\b",
		"control":       "a\x01b",
		"bare escape":   "a\x1b(b",
	}
	for name, line := range tests {
		runs := decodeLine(line, tcell.StyleDefault)
		text := ""
		for _, r := range runs {
			text += r.text
		}
		if text != "ab" {
			t.Fatalf("%s: got %q", name, text)
		}
	}
}
