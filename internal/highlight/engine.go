package highlight

import (
	"fmt"
	"log/slog"
	"strings"
)

// Engine names accepted by Select.
const (
	EngineAuto    = "auto"
	EngineNvim    = "nvim"
	EngineChroma  = "chroma"
	EngineCommand = "command"
	EnginePlain   = "plain"
)

// Engines lists the accepted engine names.
var Engines = []string{EngineAuto, EngineNvim, EngineChroma, EngineCommand, EnginePlain}

// Options carries everything an engine may need.
type Options struct {
	Locator *Locator
	Nvim    NvimOptions
	Command []string
	Logger  *slog.Logger
}

// Select builds the engine called name. "auto" prefers Neovim when it is
// installed and falls back to the in-process chroma engine.
func Select(name string, opts Options) (Invoker, error) {
	if opts.Locator == nil {
		opts.Locator = NewLocator(nil)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineAuto:
		binary := opts.Nvim.Binary
		if binary == "" {
			binary = "nvim"
		}
		if opts.Locator.Available(binary) {
			return NewNvim(opts.Locator, opts.Nvim, opts.Logger), nil
		}
		return NewChroma(), nil
	case EngineNvim:
		return NewNvim(opts.Locator, opts.Nvim, opts.Logger), nil
	case EngineChroma:
		return NewChroma(), nil
	case EngineCommand:
		return NewCommand(opts.Locator, opts.Command, opts.Logger)
	case EnginePlain:
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want one of %s)", name, strings.Join(Engines, ", "))
	}
}
