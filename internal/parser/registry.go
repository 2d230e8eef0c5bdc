package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Registry resolves a filename extension to the Parser that handles it
// (spec §4.3). It is safe for concurrent use, grounded on the teacher's
// package-level registry in internal/core/registry.go.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register associates p with every extension it reports supporting.
// Registering a duplicate extension panics: this is a startup-time wiring
// error, not a runtime condition to recover from.
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range p.SupportedExtensions() {
		ext = strings.ToLower(ext)
		if _, exists := r.parsers[ext]; exists {
			panic(fmt.Sprintf("parser: extension %q already registered", ext))
		}
		r.parsers[ext] = p
	}
}

// Resolve returns the parser registered for filename's extension.
func (r *Registry) Resolve(filename string) (Parser, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))

	r.mu.RLock()
	p, ok := r.parsers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, &unsupportedError{filename: filename, exts: r.extensionsLocked()}
	}
	return p, nil
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.extensionsLocked()
}

func (r *Registry) extensionsLocked() []string {
	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

type unsupportedError struct {
	filename string
	exts     []string
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("parser: no parser registered for %q (have %v)", e.filename, e.exts)
}

// UnsupportedExtensions returns the extensions that were registered when
// resolution failed.
func (e *unsupportedError) UnsupportedExtensions() []string { return e.exts }

// FileName exposes the filename that failed resolution.
func (e *unsupportedError) FileName() string { return e.filename }
