package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirs(t *testing.T) (string, string) {
	t.Helper()
	return filepath.Join(t.TempDir(), "factory"), filepath.Join(t.TempDir(), "etc")
}

func TestSave_FirstWriteGoesToFactory(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user)

	live, err := s.Save("self_test", uuid.New(), map[string]any{"uv_ok": true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(factory, "self_test.toml"), live)

	raw, err := os.ReadFile(live)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(raw, &decoded))
	assert.Equal(t, true, decoded["uv_ok"])
}

func TestSave_SubsequentWritesGoToUser(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user)

	_, err := s.Save("self_test", uuid.New(), map[string]any{"run": int64(1)})
	require.NoError(t, err)

	live, err := s.Save("self_test", uuid.New(), map[string]any{"run": int64(2)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(user, "self_test.toml"), live)

	// The factory copy keeps the first run's data.
	raw, err := os.ReadFile(filepath.Join(factory, "self_test.toml"))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(1), decoded["run"])
}

func TestSave_FactoryModePinsPartition(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user, WithFactoryMode(true))

	for i := 0; i < 2; i++ {
		live, err := s.Save("calibration", uuid.New(), map[string]any{"i": int64(i)})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(factory, "calibration.toml"), live)
	}
	_, err := os.Stat(filepath.Join(user, "calibration.toml"))
	assert.True(t, os.IsNotExist(err))
}

func TestSave_HistoryCopyPerRun(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user)

	first := uuid.New()
	second := uuid.New()
	_, err := s.Save("self_test", first, map[string]any{"v": int64(1)})
	require.NoError(t, err)
	_, err = s.Save("self_test", second, map[string]any{"v": int64(2)})
	require.NoError(t, err)

	factoryHist, err := filepath.Glob(filepath.Join(factory, historyDirName, "self_test.*.toml"))
	require.NoError(t, err)
	userHist, err := filepath.Glob(filepath.Join(user, historyDirName, "self_test.*.toml"))
	require.NoError(t, err)

	require.Len(t, factoryHist, 1)
	require.Len(t, userHist, 1)
	assert.Contains(t, factoryHist[0], first.String())
	assert.Contains(t, userHist[0], second.String())
}

func TestSave_LiveFileIsReplacedNotAppended(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user, WithFactoryMode(true))

	_, err := s.Save("self_test", uuid.New(), map[string]any{"old_key": "x"})
	require.NoError(t, err)
	live, err := s.Save("self_test", uuid.New(), map[string]any{"new_key": "y"})
	require.NoError(t, err)

	raw, err := os.ReadFile(live)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, toml.Unmarshal(raw, &decoded))
	assert.NotContains(t, decoded, "old_key")
	assert.Equal(t, "y", decoded["new_key"])
}

func TestSave_NoTempFilesLeftBehind(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user)

	_, err := s.Save("self_test", uuid.New(), map[string]any{"v": int64(1)})
	require.NoError(t, err)

	entries, err := os.ReadDir(factory)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestList_BothPartitionsNewestFirst(t *testing.T) {
	factory, user := newDirs(t)
	s := NewStore(factory, user)

	_, err := s.Save("self_test", uuid.New(), map[string]any{"v": int64(1)})
	require.NoError(t, err)
	_, err = s.Save("unboxing", uuid.New(), map[string]any{"v": int64(2)})
	require.NoError(t, err)
	// Pushes self_test's live file into the user partition.
	_, err = s.Save("self_test", uuid.New(), map[string]any{"v": int64(3)})
	require.NoError(t, err)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byWizard := map[string][]string{}
	for _, e := range entries {
		byWizard[e.Wizard] = append(byWizard[e.Wizard], e.Partition)
	}
	assert.ElementsMatch(t, []string{"factory", "user"}, byWizard["self_test"])
	assert.Equal(t, []string{"factory"}, byWizard["unboxing"])
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i-1].ModTime.Before(entries[i].ModTime))
	}
}

func TestList_MissingDirsAreEmpty(t *testing.T) {
	factory, user := newDirs(t)
	entries, err := NewStore(factory, user).List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}
