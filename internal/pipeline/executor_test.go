package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kk-code-lab/rcat/internal/highlight"
	"github.com/kk-code-lab/rcat/internal/style"
)

func writeArtifact(t *testing.T, content string) Chunk {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chunk-0.txt")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return Chunk{Index: 0, Length: int64(len(content)), Lines: 1, Path: path}
}

func collect(t *testing.T, out chan Result) []Result {
	t.Helper()
	var results []Result
	timeout := time.After(5 * time.Second)
	for {
		select {
		case res := <-out:
			results = append(results, res)
			if res.Kind == ResultDone {
				return results
			}
		case <-timeout:
			t.Fatalf("executor did not finish, got %v", results)
		}
	}
}

func TestExecutorRecoversPanicsAndRemovesArtifact(t *testing.T) {
	chunk := writeArtifact(t, "x\n")
	exec := NewExecutor(&fakeInvoker{panic: true}, style.NewCache(0), ExecutorOptions{})
	out := make(chan Result, 4)

	exec.Start(t.Context(), []Chunk{chunk}, out)
	results := collect(t, out)
	exec.Wait()

	if len(results) != 2 || results[0].Kind != ResultFailure {
		t.Fatalf("unexpected results %v", results)
	}
	if !errors.Is(results[0].Err, highlight.ErrCollaborator) {
		t.Fatalf("panic should map to collaborator failure, got %v", results[0].Err)
	}
	if _, err := os.Stat(chunk.Path); !os.IsNotExist(err) {
		t.Fatalf("artifact should be removed, stat err = %v", err)
	}
}

func TestExecutorReportsCleanupFailureFirst(t *testing.T) {
	chunk := writeArtifact(t, "x\n")
	exec := NewExecutor(&fakeInvoker{}, nil, ExecutorOptions{})
	exec.remove = func(string) error { return errors.New("permission denied") }
	out := make(chan Result, 4)

	exec.Start(t.Context(), []Chunk{chunk}, out)
	results := collect(t, out)

	kinds := []ResultKind{ResultUnindexedFailure, ResultLines, ResultDone}
	if len(results) != len(kinds) {
		t.Fatalf("unexpected results %v", results)
	}
	for i, kind := range kinds {
		if results[i].Kind != kind {
			t.Fatalf("result %d kind = %s, want %s", i, results[i].Kind, kind)
		}
	}
	if !errors.Is(results[0].Err, ErrIO) {
		t.Fatalf("cleanup failure should wrap ErrIO, got %v", results[0].Err)
	}
}

func TestExecutorTimeoutFailsChunk(t *testing.T) {
	chunk := writeArtifact(t, "x\n")
	inv := &fakeInvoker{delay: func([]byte) time.Duration { return time.Hour }}
	exec := NewExecutor(inv, nil, ExecutorOptions{Timeout: 20 * time.Millisecond})
	out := make(chan Result, 4)

	exec.Start(t.Context(), []Chunk{chunk}, out)
	results := collect(t, out)
	if results[0].Kind != ResultFailure || !errors.Is(results[0].Err, highlight.ErrCollaborator) {
		t.Fatalf("expected timeout failure, got %v", results[0])
	}
}

func TestExecutorSkipsEmptyChunks(t *testing.T) {
	inv := &fakeInvoker{}
	exec := NewExecutor(inv, nil, ExecutorOptions{})
	out := make(chan Result, 4)

	exec.Start(t.Context(), []Chunk{{Index: 0}, {Index: 1}}, out)
	results := collect(t, out)
	if len(results) != 3 {
		t.Fatalf("unexpected results %v", results)
	}
	for _, res := range results[:2] {
		if res.Kind != ResultLines || len(res.Lines) != 0 {
			t.Fatalf("empty chunk should yield no lines, got %v", res)
		}
	}
	if inv.calls.Load() != 0 {
		t.Fatalf("engine called for empty chunk")
	}
}

func TestExecutorPassesRequestTemplate(t *testing.T) {
	chunk := writeArtifact(t, "x\n")
	var got highlight.Request
	inv := invokerFunc(func(req highlight.Request) (highlight.Output, error) {
		got = req
		return highlight.Output{Raw: []byte("x\n")}, nil
	})
	exec := NewExecutor(inv, nil, ExecutorOptions{Request: highlight.Request{Name: "main.go", Theme: "nord"}})
	out := make(chan Result, 4)

	exec.Start(t.Context(), []Chunk{chunk}, out)
	collect(t, out)
	exec.Wait()

	if got.Path != chunk.Path || got.Name != "main.go" || got.Theme != "nord" {
		t.Fatalf("unexpected request %+v", got)
	}
}
