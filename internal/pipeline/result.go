// Package pipeline splits a file into line-aligned chunks, highlights them
// concurrently, and reassembles the rendered lines in original order.
package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrIO reports temporary artifact creation or deletion failures.
	ErrIO = errors.New("i/o failure")
	// ErrChunkFailed reports that at least one chunk could not be highlighted.
	ErrChunkFailed = errors.New("chunk failed")
)

// ResultKind tags the variants of Result.
type ResultKind int

const (
	// ResultLines carries the rendered lines of one chunk.
	ResultLines ResultKind = iota
	// ResultFailure reports that one chunk failed; it still occupies its slot.
	ResultFailure
	// ResultUnindexedFailure reports a failure not tied to any chunk.
	ResultUnindexedFailure
	// ResultDone is sent once after every worker has been joined.
	ResultDone
)

func (k ResultKind) String() string {
	switch k {
	case ResultLines:
		return "lines"
	case ResultFailure:
		return "failure"
	case ResultUnindexedFailure:
		return "unindexed-failure"
	case ResultDone:
		return "done"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is a worker completion message. It is never mutated after sending.
type Result struct {
	Kind  ResultKind
	Index int
	Lines []string
	Err   error
}

// LinesResult builds a ResultLines message.
func LinesResult(index int, lines []string) Result {
	return Result{Kind: ResultLines, Index: index, Lines: lines}
}

// FailureResult builds a ResultFailure message.
func FailureResult(index int, err error) Result {
	return Result{Kind: ResultFailure, Index: index, Err: err}
}

// UnindexedFailure builds a ResultUnindexedFailure message.
func UnindexedFailure(err error) Result {
	return Result{Kind: ResultUnindexedFailure, Index: -1, Err: err}
}

// DoneResult builds the end-of-stream marker.
func DoneResult() Result {
	return Result{Kind: ResultDone, Index: -1}
}

// ChunkError is a failure attributed to one chunk.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	if e.Index < 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }
