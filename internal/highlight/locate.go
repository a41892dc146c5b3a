package highlight

import (
	"os/exec"
	"sync"
)

// Locator memoizes executable lookups so each engine binary is resolved once
// per process instead of once per chunk.
type Locator struct {
	mu       sync.Mutex
	lookPath func(string) (string, error)
	cache    map[string]lookup
}

type lookup struct {
	path string
	err  error
}

// NewLocator builds a Locator. A nil lookPath uses exec.LookPath.
func NewLocator(lookPath func(string) (string, error)) *Locator {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Locator{
		lookPath: lookPath,
		cache:    make(map[string]lookup),
	}
}

// Find resolves name on PATH.
func (l *Locator) Find(name string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hit, ok := l.cache[name]; ok {
		return hit.path, hit.err
	}
	path, err := l.lookPath(name)
	l.cache[name] = lookup{path: path, err: err}
	return path, err
}

// Available reports whether name resolves.
func (l *Locator) Available(name string) bool {
	_, err := l.Find(name)
	return err == nil
}
