package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/kk-code-lab/rcat/internal/debuglog"
	"github.com/kk-code-lab/rcat/internal/highlight"
	"github.com/kk-code-lab/rcat/internal/style"
)

// DefaultTimeout bounds one engine call unless configured otherwise.
const DefaultTimeout = 60 * time.Second

// Config wires the collaborators of a highlighting session.
type Config struct {
	Invoker     highlight.Invoker
	Cache       *style.Cache
	Planner     *Planner
	Parallelism int
	Timeout     time.Duration
	Theme       string
	RuntimePath string
	Logger      *slog.Logger
}

// Input describes the file being highlighted. Name is what engines use for
// language detection and may differ from Path (stdin spools, for example).
type Input struct {
	Path string
	Name string
	Size int64
}

// Session is one running highlight of one file.
type Session struct {
	Buffer *MergeBuffer
	Chunks []Chunk

	cancel   context.CancelFunc
	executor *Executor
	once     sync.Once
}

// DefaultParallelism returns the number of workers used when none is configured.
func DefaultParallelism() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 4
}

// Start plans the file and launches the workers. The returned session's
// Buffer releases rendered lines in file order. Planning errors abort before
// any worker runs.
func Start(ctx context.Context, cfg Config, in Input) (*Session, error) {
	if cfg.Invoker == nil {
		return nil, errors.New("pipeline: no highlight engine configured")
	}
	logger := debuglog.OrDiscard(cfg.Logger)
	planner := cfg.Planner
	if planner == nil {
		planner = NewPlanner("", logger)
	}
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = DefaultParallelism()
	}

	started := time.Now()
	chunks, err := planner.Plan(in.Path, in.Size, parallelism)
	if err != nil {
		return nil, err
	}
	logger.Debug("planned",
		"file", in.Name,
		"size", in.Size,
		"chunks", len(chunks),
		"engine", cfg.Invoker.Name(),
		"elapsed", time.Since(started),
	)

	sessionCtx, cancel := context.WithCancel(ctx)
	// Room for every indexed result, one possible cleanup failure per chunk,
	// and the end marker, so workers never block on a slow consumer.
	results := make(chan Result, 2*len(chunks)+1)

	name := in.Name
	if name == "" {
		name = in.Path
	}
	executor := NewExecutor(cfg.Invoker, cfg.Cache, ExecutorOptions{
		Request: highlight.Request{
			Name:        name,
			Theme:       cfg.Theme,
			RuntimePath: cfg.RuntimePath,
		},
		Timeout: cfg.Timeout,
		Logger:  logger,
	})
	executor.Start(sessionCtx, chunks, results)

	return &Session{
		Buffer:   NewMergeBuffer(results, len(chunks), cfg.Cache, logger),
		Chunks:   chunks,
		cancel:   cancel,
		executor: executor,
	}, nil
}

// Cancel stops outstanding engine calls. Workers still remove their artifacts.
func (s *Session) Cancel() {
	s.cancel()
}

// Wait blocks until every worker has exited.
func (s *Session) Wait() {
	s.executor.Wait()
}

// Close cancels the session and waits for the workers. Safe to call twice.
func (s *Session) Close() {
	s.once.Do(func() {
		s.cancel()
		s.executor.Wait()
	})
}
