package highlight

import (
	"context"
	"fmt"
	"os"
)

// Plain returns artifacts unmodified. It is used for files above the size
// ceiling, where highlighting is skipped but chunked streaming still applies.
type Plain struct{}

func (Plain) Name() string { return "plain" }

func (Plain) Highlight(ctx context.Context, req Request) (Output, error) {
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return Output{}, fmt.Errorf("plain: %w", err)
	}
	return Output{Raw: data}, nil
}
