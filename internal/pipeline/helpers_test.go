package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kk-code-lab/rcat/internal/highlight"
)

// fakeInvoker echoes the artifact back as raw output.
type fakeInvoker struct {
	delay func(content []byte) time.Duration
	fail  func(content []byte) error
	panic bool

	calls atomic.Int32
	mu    sync.Mutex
	order []string
}

func (f *fakeInvoker) Name() string { return "fake" }

func (f *fakeInvoker) Highlight(ctx context.Context, req highlight.Request) (highlight.Output, error) {
	f.calls.Add(1)
	if f.panic {
		panic("engine exploded")
	}
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return highlight.Output{}, err
	}
	if f.delay != nil {
		select {
		case <-time.After(f.delay(data)):
		case <-ctx.Done():
			return highlight.Output{}, fmt.Errorf("%w: %v", highlight.ErrCollaborator, ctx.Err())
		}
	}
	f.mu.Lock()
	f.order = append(f.order, req.Path)
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(data); err != nil {
			return highlight.Output{}, err
		}
	}
	return highlight.Output{Raw: data}, nil
}

func (f *fakeInvoker) completed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func writeNumberedFile(t *testing.T, dir string, n int) (string, string) {
	t.Helper()
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	path := filepath.Join(dir, "input.go")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path, b.String()
}

func runToString(t *testing.T, cfg Config, path string, opts WriteOptions) (*Session, string, error) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	session, err := Start(t.Context(), cfg, Input{Path: path, Name: filepath.Base(path), Size: info.Size()})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	var out bytes.Buffer
	werr := WriteAll(t.Context(), &out, session.Buffer, opts)
	session.Close()
	return session, out.String(), werr
}

func assertNoArtifacts(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read artifact dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("artifacts left behind: %v", names)
	}
}

type invokerFunc func(req highlight.Request) (highlight.Output, error)

func (f invokerFunc) Name() string { return "func" }

func (f invokerFunc) Highlight(_ context.Context, req highlight.Request) (highlight.Output, error) {
	return f(req)
}
