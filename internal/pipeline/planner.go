package pipeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kk-code-lab/rcat/internal/debuglog"
	fsutil "github.com/kk-code-lab/rcat/internal/fs"
)

const plannerBufferSize = 64 * 1024

// Chunk is a contiguous, line-aligned part of the source file materialized as
// a temporary artifact. An empty Path marks a chunk without content.
type Chunk struct {
	Index  int
	Offset int64
	Length int64
	Lines  int
	Path   string
}

// Empty reports whether the chunk carries no content.
func (c Chunk) Empty() bool {
	return c.Path == ""
}

// Planner splits files into chunk artifacts.
type Planner struct {
	tempDir  string
	logger   *slog.Logger
	newRunID func() string
}

// NewPlanner builds a planner writing artifacts to tempDir (os.TempDir when empty).
func NewPlanner(tempDir string, logger *slog.Logger) *Planner {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Planner{
		tempDir: tempDir,
		logger:  debuglog.OrDiscard(logger),
		newRunID: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		},
	}
}

type artifact struct {
	file   *os.File
	writer *bufio.Writer
	chunk  Chunk
}

// Plan splits path into exactly parallelism chunks whose boundaries fall on
// line boundaries. A chunk is cut once it holds at least size/parallelism
// bytes, so trailing chunks may be empty when the file has few lines. A
// zero-byte file yields no chunks. On error every artifact created so far is
// removed.
func (p *Planner) Plan(path string, size int64, parallelism int) (chunks []Chunk, err error) {
	if parallelism < 1 {
		parallelism = 1
	}
	if size <= 0 {
		return nil, nil
	}

	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, fsutil.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrIO, path, err)
	}
	defer func() {
		_ = src.Close()
	}()

	reader := bufio.NewReaderSize(src, plannerBufferSize)
	head, _ := reader.Peek(3)
	if enc := fsutil.DetectEncoding(head); enc != fsutil.EncodingUnknown {
		reader = bufio.NewReaderSize(fsutil.NewUTF8Reader(reader, enc), plannerBufferSize)
	}

	runID := p.newRunID()
	ext := filepath.Ext(path)
	target := size / int64(parallelism)

	var current *artifact
	defer func() {
		if err == nil {
			return
		}
		if current != nil {
			_ = current.file.Close()
			_ = os.Remove(current.file.Name())
		}
		RemoveArtifacts(chunks)
		chunks = nil
	}()

	cuts := 0
	partial := false
	var offset int64
	for {
		line, readErr := reader.ReadSlice('\n')
		if readErr != nil && !errors.Is(readErr, bufio.ErrBufferFull) && !errors.Is(readErr, io.EOF) {
			return chunks, fmt.Errorf("%w: read %s: %v", ErrIO, path, readErr)
		}

		if len(line) > 0 {
			if current == nil {
				current, err = p.open(runID, len(chunks), ext, offset)
				if err != nil {
					return chunks, err
				}
			}
			if _, err = current.writer.Write(line); err != nil {
				return chunks, fmt.Errorf("%w: write %s: %v", ErrIO, current.file.Name(), err)
			}
			current.chunk.Length += int64(len(line))
			offset += int64(len(line))
		}

		if errors.Is(readErr, bufio.ErrBufferFull) {
			partial = true
			continue
		}
		if current != nil && (len(line) > 0 || partial) {
			current.chunk.Lines++
		}
		partial = false
		if errors.Is(readErr, io.EOF) {
			break
		}
		if current != nil && current.chunk.Length >= target && cuts < parallelism-1 {
			chunk, closeErr := p.finish(current)
			current = nil
			if closeErr != nil {
				return chunks, closeErr
			}
			chunks = append(chunks, chunk)
			cuts++
		}
	}

	if current != nil {
		chunk, closeErr := p.finish(current)
		current = nil
		if closeErr != nil {
			return chunks, closeErr
		}
		chunks = append(chunks, chunk)
	}
	for len(chunks) < parallelism {
		chunks = append(chunks, Chunk{Index: len(chunks), Offset: offset})
	}

	p.logger.Debug("planned chunks", "path", path, "size", size, "parallelism", parallelism, "target", target, "cuts", cuts)
	return chunks, nil
}

func (p *Planner) open(runID string, index int, ext string, offset int64) (*artifact, error) {
	name := filepath.Join(p.tempDir, fmt.Sprintf("rcat-%d-%s-%d%s", os.Getpid(), runID, index, ext))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: create artifact: %v", ErrIO, err)
	}
	return &artifact{
		file:   f,
		writer: bufio.NewWriterSize(f, plannerBufferSize),
		chunk:  Chunk{Index: index, Offset: offset, Path: name},
	}, nil
}

func (p *Planner) finish(a *artifact) (Chunk, error) {
	flushErr := a.writer.Flush()
	closeErr := a.file.Close()
	if err := errors.Join(flushErr, closeErr); err != nil {
		_ = os.Remove(a.chunk.Path)
		return Chunk{}, fmt.Errorf("%w: close artifact %s: %v", ErrIO, a.chunk.Path, err)
	}
	return a.chunk, nil
}

// RemoveArtifacts deletes the artifacts of chunks that were never handed to a worker.
func RemoveArtifacts(chunks []Chunk) {
	for _, chunk := range chunks {
		if chunk.Path != "" {
			_ = os.Remove(chunk.Path)
		}
	}
}
