// Package history persists wizard result data: one live result file per
// wizard in either the factory or the user partition, plus an immutable
// timestamped copy in the chosen partition's history directory.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
)

// historyDirName is the per-partition subdirectory of immutable copies.
const historyDirName = "history"

// timestampLayout names history copies so they sort chronologically.
const timestampLayout = "2006-01-02T15-04-05"

// Store writes result files. Destination policy: factory partition when
// the wizard's file is not present there yet or factory mode is on,
// otherwise the user partition.
type Store struct {
	factoryDir  string
	userDir     string
	factoryMode bool
}

// Option configures a Store.
type Option func(*Store)

// WithFactoryMode forces all writes to the factory partition.
func WithFactoryMode(on bool) Option {
	return func(s *Store) { s.factoryMode = on }
}

// NewStore creates a store over the two partition directories.
func NewStore(factoryDir, userDir string, opts ...Option) *Store {
	s := &Store{factoryDir: factoryDir, userDir: userDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save serializes data and writes the wizard's live result file and its
// history copy. It returns the live file path.
func (s *Store) Save(wizard string, runID uuid.UUID, data map[string]any) (string, error) {
	raw, err := toml.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("serialize %s results: %w", wizard, err)
	}

	dir := s.destination(wizard)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	live := filepath.Join(dir, wizard+".toml")
	if err := atomicWrite(live, raw); err != nil {
		return "", err
	}

	histDir := filepath.Join(dir, historyDirName)
	if err := os.MkdirAll(histDir, 0o755); err != nil {
		return "", err
	}
	stamp := time.Now().Format(timestampLayout)
	copyName := fmt.Sprintf("%s.%s.%s.toml", wizard, stamp, runID)
	if err := atomicWrite(filepath.Join(histDir, copyName), raw); err != nil {
		return "", err
	}
	return live, nil
}

// destination applies the partition policy for one wizard.
func (s *Store) destination(wizard string) string {
	if s.factoryMode {
		return s.factoryDir
	}
	if _, err := os.Stat(filepath.Join(s.factoryDir, wizard+".toml")); err != nil {
		return s.factoryDir
	}
	return s.userDir
}

// Entry describes one persisted result file.
type Entry struct {
	Wizard    string
	Path      string
	Partition string
	ModTime   time.Time
}

// List enumerates the live result files of both partitions, newest
// first.
func (s *Store) List() ([]Entry, error) {
	var out []Entry
	for _, p := range []struct{ name, dir string }{
		{"factory", s.factoryDir},
		{"user", s.userDir},
	} {
		entries, err := os.ReadDir(p.dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			out = append(out, Entry{
				Wizard:    e.Name()[:len(e.Name())-len(".toml")],
				Path:      filepath.Join(p.dir, e.Name()),
				Partition: p.name,
				ModTime:   info.ModTime(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModTime.After(out[j].ModTime) })
	return out, nil
}

// atomicWrite writes data through a temp file in the same directory and
// an atomic rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
