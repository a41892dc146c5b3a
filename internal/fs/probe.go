// Package fs inspects input files before they enter the highlighting pipeline.
package fs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

var (
	// ErrNotFound reports a missing input path.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedContent reports binary or device content that must bypass highlighting.
	ErrUnsupportedContent = errors.New("unsupported content")
)

// Probe describes an input file.
type Probe struct {
	Path     string
	Size     int64
	Mode     fs.FileMode
	Encoding Encoding
	Text     bool
}

var statFile = os.Stat

// ProbeFile stats path and sniffs its head. Missing paths wrap ErrNotFound;
// binary and non-regular files are reported with Text=false and a nil error so
// callers can stream them raw.
func ProbeFile(path string) (Probe, error) {
	info, err := statFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Probe{}, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return Probe{}, err
	}
	if info.IsDir() {
		return Probe{}, fmt.Errorf("%s: is a directory: %w", path, ErrUnsupportedContent)
	}

	probe := Probe{
		Path: path,
		Size: info.Size(),
		Mode: info.Mode(),
	}
	if !info.Mode().IsRegular() {
		return probe, nil
	}

	head, err := ReadFileHead(path, textDetectionSampleSize)
	if err != nil {
		return Probe{}, err
	}
	probe.Encoding = DetectEncoding(head)
	probe.Text = IsTextFile(path, head)
	return probe, nil
}

// ReadFileHead returns up to limit bytes from the beginning of path.
func ReadFileHead(path string, limit int64) ([]byte, error) {
	if limit <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	return io.ReadAll(io.LimitReader(f, limit))
}

// CountLinesUpTo counts lines in path, stopping once the count exceeds limit.
// A trailing line without terminator counts as a line.
func CountLinesUpTo(path string, limit int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	reader := bufio.NewReader(f)
	lines := 0
	partial := false
	for lines <= limit {
		chunk, err := reader.ReadSlice('\n')
		switch {
		case err == nil:
			lines++
			partial = false
		case errors.Is(err, bufio.ErrBufferFull):
			partial = true
		case errors.Is(err, io.EOF):
			if partial || len(chunk) > 0 {
				lines++
			}
			return lines, nil
		default:
			return lines, err
		}
	}
	return lines, nil
}
