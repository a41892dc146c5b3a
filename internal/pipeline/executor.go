package pipeline

import (
	"context"
	"errors"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/kk-code-lab/rcat/internal/highlight"
	"github.com/kk-code-lab/rcat/internal/style"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Request is the template passed to the engine; Path is set per chunk.
	Request highlight.Request
	// Timeout bounds each engine call. Zero means unbounded.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Executor runs one worker per chunk.
type Executor struct {
	invoker highlight.Invoker
	cache   *style.Cache
	opts    ExecutorOptions
	logger  *slog.Logger
	remove  func(string) error

	wg     sync.WaitGroup
	joined chan struct{}
}

// NewExecutor builds an executor that renders structured engine output
// through cache.
func NewExecutor(invoker highlight.Invoker, cache *style.Cache, opts ExecutorOptions) *Executor {
	return &Executor{
		invoker: invoker,
		cache:   cache,
		opts:    opts,
		logger:  debuglog.OrDiscard(opts.Logger),
		remove:  os.Remove,
		joined:  make(chan struct{}),
	}
}

// Start launches the workers and returns immediately. Every chunk produces
// exactly one Lines or Failure result on out; after all workers are joined a
// single Done result follows. Sends are abandoned once ctx is cancelled.
func (e *Executor) Start(ctx context.Context, chunks []Chunk, out chan<- Result) {
	for _, chunk := range chunks {
		e.wg.Add(1)
		go func(chunk Chunk) {
			defer e.wg.Done()
			e.work(ctx, chunk, out)
		}(chunk)
	}

	go func() {
		e.wg.Wait()
		send(ctx, out, DoneResult())
		close(e.joined)
	}()
}

// Wait blocks until every worker has finished.
func (e *Executor) Wait() {
	<-e.joined
}

func (e *Executor) work(ctx context.Context, chunk Chunk, out chan<- Result) {
	started := time.Now()
	res := e.highlight(ctx, chunk, out)
	e.logger.Debug("chunk done",
		"index", chunk.Index,
		"kind", res.Kind.String(),
		"lines", len(res.Lines),
		"elapsed", time.Since(started),
	)
	send(ctx, out, res)
}

// highlight invokes the engine and always removes the artifact before
// returning, including when the engine panics.
func (e *Executor) highlight(ctx context.Context, chunk Chunk, out chan<- Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = FailureResult(chunk.Index, fmt.Errorf("%w: %s panicked: %v", highlight.ErrCollaborator, e.invoker.Name(), r))
		}
	}()
	defer e.release(ctx, chunk, out)

	if chunk.Empty() {
		return LinesResult(chunk.Index, nil)
	}

	callCtx := ctx
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	req := e.opts.Request
	req.Path = chunk.Path
	output, err := e.invoker.Highlight(callCtx, req)
	if err != nil {
		return FailureResult(chunk.Index, err)
	}
	return LinesResult(chunk.Index, output.Render(e.cache))
}

// release deletes the chunk artifact. A deletion failure is reported as an
// unindexed failure sent ahead of the chunk's own result.
func (e *Executor) release(ctx context.Context, chunk Chunk, out chan<- Result) {
	if chunk.Empty() {
		return
	}
	if err := e.remove(chunk.Path); err != nil && !errors.Is(err, iofs.ErrNotExist) {
		e.logger.Warn("artifact cleanup failed", "path", chunk.Path, "err", err)
		send(ctx, out, UnindexedFailure(fmt.Errorf("%w: remove artifact %d: %v", ErrIO, chunk.Index, err)))
	}
}

func send(ctx context.Context, out chan<- Result, res Result) {
	select {
	case out <- res:
	case <-ctx.Done():
	}
}
