package config

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/kk-code-lab/rcat/internal/ui/pager"
	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor accepts "#rrggbb", "#rgb" or a color name known to tcell.
func ParseColor(value string) (tcell.Color, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "#") {
		c, err := colorful.Hex(value)
		if err != nil {
			return tcell.ColorDefault, fmt.Errorf("%w: color %q: %v", ErrInvalid, value, err)
		}
		r, g, b := c.RGB255()
		return tcell.NewRGBColor(int32(r), int32(g), int32(b)), nil
	}
	if c, ok := tcell.ColorNames[strings.ToLower(value)]; ok {
		return c, nil
	}
	return tcell.ColorDefault, fmt.Errorf("%w: unknown color %q", ErrInvalid, value)
}

// Theme overlays the configured colors on the default pager theme.
func (c Colors) Theme() (pager.Theme, error) {
	theme := pager.DefaultTheme()
	fields := []struct {
		value string
		dst   *tcell.Color
	}{
		{c.Gutter, &theme.Gutter},
		{c.StatusFg, &theme.StatusFg},
		{c.StatusBg, &theme.StatusBg},
		{c.Error, &theme.Error},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		color, err := ParseColor(f.value)
		if err != nil {
			return theme, err
		}
		*f.dst = color
	}
	return theme, nil
}
