package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"
)

// WriteOptions tunes WriteAll.
type WriteOptions struct {
	// StripEscapes removes every escape sequence before writing.
	StripEscapes bool
	// BestEffort suppresses the ErrChunkFailed result when chunks failed.
	BestEffort bool
}

// WriteAll streams released lines to w as soon as the merge buffer produces
// them, one newline-terminated line each. Output is flushed after every
// release so a slow chunk never holds back lines already in order.
func WriteAll(ctx context.Context, w io.Writer, buf *MergeBuffer, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	for {
		lines, err := buf.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		for _, line := range lines {
			if opts.StripEscapes {
				line = ansi.Strip(line)
			}
			if _, err := bw.WriteString(line); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	// Unindexed failures that were already queued still belong in the output.
	if tail := buf.Poll(); len(tail) > 0 {
		for _, line := range tail {
			if opts.StripEscapes {
				line = ansi.Strip(line)
			}
			fmt.Fprintln(bw, line)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}

	if failures := buf.Failures(); len(failures) > 0 && !opts.BestEffort {
		return fmt.Errorf("%w: %w", ErrChunkFailed, errors.Join(failures...))
	}
	return nil
}
