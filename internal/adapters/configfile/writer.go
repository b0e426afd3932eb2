// Package configfile implements ports.ConfigWriter over an INI file.
// Sets are staged in memory and become durable only on Commit, written
// through a temp file and an atomic rename.
package configfile

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sync"

	"gopkg.in/ini.v1"

	"github.com/jaczemann/sla-fw-sub001/internal/ports"
)

// Writer stages key/value settings for one INI file section.
type Writer struct {
	path    string
	section string
	fs      ports.FileSystem

	mu      sync.Mutex
	pending map[string]interface{}
}

// NewWriter creates a writer for the given file and section. The file
// does not have to exist yet.
func NewWriter(path, section string, fs ports.FileSystem) *Writer {
	return &Writer{
		path:    path,
		section: section,
		fs:      fs,
		pending: make(map[string]interface{}),
	}
}

// Set stages a value. Invisible until Commit.
func (w *Writer) Set(key string, value interface{}) {
	w.mu.Lock()
	w.pending[key] = value
	w.mu.Unlock()
}

// Changed reports whether any staged value is pending.
func (w *Writer) Changed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending) > 0
}

// Commit merges the staged values into the file and writes it back
// atomically. A writer with nothing staged commits as a no-op.
func (w *Writer) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}

	cfg := ini.Empty()
	if w.fs.Exists(w.path) {
		raw, err := w.fs.ReadFile(w.path)
		if err != nil {
			return fmt.Errorf("read %s: %w", w.path, err)
		}
		cfg, err = ini.Load(raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", w.path, err)
		}
	}

	section, err := cfg.NewSection(w.section)
	if err != nil {
		return fmt.Errorf("section %q: %w", w.section, err)
	}
	for k, v := range w.pending {
		section.Key(k).SetValue(fmt.Sprintf("%v", v))
	}

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		return fmt.Errorf("serialize %s: %w", w.path, err)
	}

	tmp := w.path + ".tmp"
	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	if err := w.fs.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := w.fs.Rename(tmp, w.path); err != nil {
		return err
	}

	w.pending = make(map[string]interface{})
	return nil
}

// Ensure Writer implements ConfigWriter.
var _ ports.ConfigWriter = (*Writer)(nil)
