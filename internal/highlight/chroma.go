package highlight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	enry "github.com/go-enry/go-enry/v2"
	"github.com/kk-code-lab/rcat/internal/style"
)

const defaultChromaTheme = "monokai"

// languages whose go-enry names differ from chroma lexer aliases
var enryToChromaMap = map[string]string{
	"Shell":              "bash",
	"Vim Script":         "vim",
	"Emacs Lisp":         "emacs-lisp",
	"Protocol Buffer":    "protobuf",
	"Git Config":         "ini",
	"Ignore List":        "plaintext",
	"Text":               "plaintext",
	"Graphviz (DOT)":     "dot",
	"Objective-C++":      "objective-c",
	"JSON with Comments": "json",
}

// Chroma highlights in-process with chroma lexers and styles.
type Chroma struct {
	mu      sync.RWMutex
	lexers  map[string]chroma.Lexer
	entries map[styleKey]style.Descriptor
}

type styleKey struct {
	theme string
	token chroma.TokenType
}

// NewChroma builds the chroma engine.
func NewChroma() *Chroma {
	return &Chroma{
		lexers:  make(map[string]chroma.Lexer),
		entries: make(map[styleKey]style.Descriptor),
	}
}

func (c *Chroma) Name() string { return "chroma" }

func (c *Chroma) Highlight(ctx context.Context, req Request) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	content, err := os.ReadFile(req.Path)
	if err != nil {
		return Output{}, fmt.Errorf("chroma: %w", err)
	}
	if len(content) == 0 {
		return Output{Lines: [][]Segment{}}, nil
	}

	name := req.Name
	if name == "" {
		name = req.Path
	}
	lexer := c.lexerFor(name, content)

	iterator, err := lexer.Tokenise(nil, string(content))
	if err != nil {
		return Output{}, fmt.Errorf("%w: chroma: %v", ErrCollaborator, err)
	}

	theme := req.Theme
	if theme == "" {
		theme = defaultChromaTheme
	}
	sty := styles.Get(theme)

	tokenLines := chroma.SplitTokensIntoLines(iterator.Tokens())
	lines := make([][]Segment, 0, len(tokenLines))
	for _, tokens := range tokenLines {
		segments := make([]Segment, 0, len(tokens))
		for _, tok := range tokens {
			text := strings.TrimRight(tok.Value, "\r\n")
			if text == "" {
				continue
			}
			desc := c.descriptor(theme, sty, tok.Type)
			segments = append(segments, Segment{Text: text, Style: desc, Styled: !desc.IsZero()})
		}
		lines = append(lines, segments)
	}
	return Output{Lines: lines}, nil
}

// lexerFor picks a lexer by file name first, then by go-enry detection
// (shebang, modeline, content), then chroma's own analysis.
func (c *Chroma) lexerFor(name string, content []byte) chroma.Lexer {
	// Filename patterns can match whole names (CMakeLists.txt), so the
	// cache is keyed by base name rather than extension.
	key := filepath.Base(name)

	c.mu.RLock()
	cached, ok := c.lexers[key]
	c.mu.RUnlock()
	if ok && cached != nil {
		return cached
	}

	lexer := lexers.Match(filepath.Base(name))
	cacheable := lexer != nil
	if lexer == nil {
		if lang := enry.GetLanguage(filepath.Base(name), content); lang != "" {
			lexer = lexers.Get(enryToChroma(lang))
		}
	}
	if lexer == nil {
		lexer = lexers.Analyse(string(content))
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	// Content-based picks depend on the chunk, so only name matches are cached.
	if cacheable {
		c.mu.Lock()
		c.lexers[key] = lexer
		c.mu.Unlock()
	}
	return lexer
}

func (c *Chroma) descriptor(theme string, sty *chroma.Style, tokenType chroma.TokenType) style.Descriptor {
	key := styleKey{theme: theme, token: tokenType}
	c.mu.RLock()
	desc, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return desc
	}

	entry := sty.Get(tokenType)
	desc = style.Descriptor{
		Bold:      entry.Bold == chroma.Yes,
		Italic:    entry.Italic == chroma.Yes,
		Underline: entry.Underline == chroma.Yes,
	}
	if entry.Colour.IsSet() {
		desc = desc.WithFg(style.RGB{R: entry.Colour.Red(), G: entry.Colour.Green(), B: entry.Colour.Blue()})
	}
	// Only backgrounds that differ from the theme background are kept.
	if bg := entry.Background; bg.IsSet() && bg != sty.Get(chroma.Background).Background {
		desc = desc.WithBg(style.RGB{R: bg.Red(), G: bg.Green(), B: bg.Blue()})
	}

	c.mu.Lock()
	c.entries[key] = desc
	c.mu.Unlock()
	return desc
}

func enryToChroma(enryName string) string {
	if alias, ok := enryToChromaMap[enryName]; ok {
		return alias
	}
	return strings.ToLower(enryName)
}
