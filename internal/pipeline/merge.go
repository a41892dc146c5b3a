package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/kk-code-lab/rcat/internal/style"
	"github.com/kk-code-lab/rcat/internal/textutil"
)

var diagnosticStyle = style.Descriptor{Bold: true}.WithFg(style.Hex(0xe06c75))

// MergeBuffer reassembles worker results in chunk order. Only the longest
// contiguous prefix of completed chunks is released; later chunks wait in
// pending until their predecessors arrive. A failed chunk releases a single
// diagnostic line so ordering never stalls.
//
// MergeBuffer is not safe for concurrent use; it belongs to the sink that
// drains it.
type MergeBuffer struct {
	in       <-chan Result
	total    int
	next     int
	pending  map[int]Result
	trailing []error
	failures []error
	released int
	finished bool
	cache    *style.Cache
	logger   *slog.Logger
}

// NewMergeBuffer builds a buffer expecting total indexed results on in.
func NewMergeBuffer(in <-chan Result, total int, cache *style.Cache, logger *slog.Logger) *MergeBuffer {
	return &MergeBuffer{
		in:       in,
		total:    total,
		pending:  make(map[int]Result),
		finished: total == 0,
		cache:    cache,
		logger:   debuglog.OrDiscard(logger),
	}
}

// Accept folds one result into the buffer and returns the lines it releases.
func (m *MergeBuffer) Accept(res Result) []string {
	switch res.Kind {
	case ResultDone:
		return m.flushMissing()
	case ResultUnindexedFailure:
		m.failures = append(m.failures, res.Err)
		if m.finished {
			return m.releaseDiagnostic(-1, res.Err)
		}
		m.trailing = append(m.trailing, res.Err)
		return nil
	}

	if res.Index < m.next || res.Index >= m.total {
		m.logger.Warn("dropping out of range result", "index", res.Index, "next", m.next, "total", m.total)
		return nil
	}
	if _, dup := m.pending[res.Index]; dup {
		m.logger.Warn("dropping duplicate result", "index", res.Index)
		return nil
	}
	if res.Kind == ResultFailure {
		m.failures = append(m.failures, &ChunkError{Index: res.Index, Err: res.Err})
	}

	if res.Index != m.next {
		m.pending[res.Index] = res
		return nil
	}

	lines := m.release(res)
	for {
		queued, ok := m.pending[m.next]
		if !ok {
			break
		}
		delete(m.pending, m.next)
		lines = append(lines, m.release(queued)...)
	}
	return append(lines, m.finishIfComplete()...)
}

func (m *MergeBuffer) release(res Result) []string {
	m.next++
	if res.Kind == ResultFailure {
		return m.releaseDiagnostic(res.Index, res.Err)
	}
	m.released += len(res.Lines)
	return res.Lines
}

func (m *MergeBuffer) releaseDiagnostic(index int, err error) []string {
	m.released++
	return []string{m.diagnostic(index, err)}
}

func (m *MergeBuffer) finishIfComplete() []string {
	if m.finished || m.next < m.total {
		return nil
	}
	m.finished = true
	var lines []string
	for _, err := range m.trailing {
		lines = append(lines, m.releaseDiagnostic(-1, err)...)
	}
	m.trailing = nil
	return lines
}

// flushMissing handles an end-of-stream marker that arrives while chunks are
// still outstanding. Every index normally reports, so this only guards
// against a worker that vanished; the gap becomes a diagnostic line.
func (m *MergeBuffer) flushMissing() []string {
	if m.finished {
		return nil
	}
	var lines []string
	for m.next < m.total {
		if queued, ok := m.pending[m.next]; ok {
			delete(m.pending, m.next)
			lines = append(lines, m.release(queued)...)
			continue
		}
		err := fmt.Errorf("%w: no result", ErrChunkFailed)
		m.failures = append(m.failures, &ChunkError{Index: m.next, Err: err})
		lines = append(lines, m.releaseDiagnostic(m.next, err)...)
		m.next++
	}
	return append(lines, m.finishIfComplete()...)
}

func (m *MergeBuffer) diagnostic(index int, err error) string {
	msg := "[rcat] "
	if index >= 0 {
		msg += fmt.Sprintf("chunk %d: ", index)
	}
	msg += textutil.SanitizeTerminalText(err.Error())
	return m.cache.Escape(diagnosticStyle) + msg + style.Reset
}

// Poll drains every result currently queued without blocking and returns
// the lines released since the previous call.
func (m *MergeBuffer) Poll() []string {
	var lines []string
	for {
		select {
		case res := <-m.in:
			lines = append(lines, m.Accept(res)...)
		default:
			return lines
		}
	}
}

// Next blocks until new lines are released, the buffer finishes (io.EOF), or
// ctx is done.
func (m *MergeBuffer) Next(ctx context.Context) ([]string, error) {
	for !m.finished {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-m.in:
			if lines := m.Accept(res); len(lines) > 0 {
				return lines, nil
			}
		}
	}
	return nil, io.EOF
}

// Finished reports whether every chunk has been released.
func (m *MergeBuffer) Finished() bool { return m.finished }

// Released returns the number of lines released so far.
func (m *MergeBuffer) Released() int { return m.released }

// NextIndex returns the index of the next chunk required for release.
func (m *MergeBuffer) NextIndex() int { return m.next }

// Total returns the number of chunks expected.
func (m *MergeBuffer) Total() int { return m.total }

// Failures returns every failure seen so far.
func (m *MergeBuffer) Failures() []error {
	return append([]error(nil), m.failures...)
}
