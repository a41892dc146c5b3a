package highlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kk-code-lab/rcat/internal/debuglog"
)

// Command runs a user supplied program whose stdout is already colored, for
// example {"bat", "--color=always", "--style=plain", "{file}"}. The
// placeholders {file}, {name} and {theme} are substituted per call.
type Command struct {
	locator *Locator
	argv    []string
	logger  *slog.Logger
}

// NewCommand builds the command engine. argv must not be empty.
func NewCommand(locator *Locator, argv []string, logger *slog.Logger) (*Command, error) {
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("command engine: empty command")
	}
	return &Command{
		locator: locator,
		argv:    append([]string(nil), argv...),
		logger:  debuglog.OrDiscard(logger),
	}, nil
}

func (c *Command) Name() string { return "command" }

func (c *Command) Highlight(ctx context.Context, req Request) (Output, error) {
	bin, err := c.locator.Find(c.argv[0])
	if err != nil {
		return Output{}, fmt.Errorf("%w: %s: %v", ErrCollaborator, c.argv[0], err)
	}

	replacer := strings.NewReplacer("{file}", req.Path, "{name}", req.Name, "{theme}", req.Theme)
	args := make([]string, 0, len(c.argv)-1)
	hasFile := false
	for _, arg := range c.argv[1:] {
		if strings.Contains(arg, "{file}") {
			hasFile = true
		}
		args = append(args, replacer.Replace(arg))
	}
	if !hasFile {
		args = append(args, req.Path)
	}

	stdout, stderr, err := runCommand(ctx, bin, args, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, fmt.Errorf("%w: %s: %v", ErrCollaborator, c.argv[0], ctxErr)
		}
		detail := strings.TrimSpace(string(stderr))
		c.logger.Debug("command engine failed", "argv", c.argv, "err", err, "stderr", detail)
		if detail != "" {
			return Output{}, fmt.Errorf("%w: %s: %v: %s", ErrCollaborator, c.argv[0], err, firstLine(detail))
		}
		return Output{}, fmt.Errorf("%w: %s: %v", ErrCollaborator, c.argv[0], err)
	}
	return Output{Raw: stdout}, nil
}
