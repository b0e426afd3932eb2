package mocks

import (
	"sync"

	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// ConfigWriter is a thread-safe test double for ports.ConfigWriter. It
// records every staged value and counts commits.
type ConfigWriter struct {
	mu       sync.Mutex
	staged   map[string]interface{}
	commits  int
	commitFn func() error
}

// NewConfigWriter creates a new ConfigWriter mock.
func NewConfigWriter() *ConfigWriter {
	return &ConfigWriter{staged: make(map[string]interface{})}
}

// FailCommit makes Commit return the given error.
func (m *ConfigWriter) FailCommit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commitFn = func() error { return err }
}

// Set stages a value.
func (m *ConfigWriter) Set(key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staged[key] = value
}

// Changed reports whether anything is staged.
func (m *ConfigWriter) Changed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staged) > 0
}

// Commit records the commit.
func (m *ConfigWriter) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitFn != nil {
		return m.commitFn()
	}
	m.commits++
	return nil
}

// Commits counts successful Commit calls.
func (m *ConfigWriter) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// Staged returns the staged value for key.
func (m *ConfigWriter) Staged(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.staged[key]
	return v, ok
}

// Ensure ConfigWriter implements the port.
var _ ports.ConfigWriter = (*ConfigWriter)(nil)
