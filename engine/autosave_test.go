package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdpilot/model"
	"mdpilot/provider/testutil"
	"mdpilot/state"
	"mdpilot/storage"
)

func newSaver(t *testing.T, save SaveFunc) (*AutoSaver, *state.Store, *testutil.Notifications) {
	t.Helper()
	settings := model.DefaultSettings()
	settings.Language = "en"
	store := state.New(settings)
	notes := &testutil.Notifications{}
	saver := NewAutoSaver(store, notes, save)
	saver.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return saver, store, notes
}

func TestAutoSaverFallbackNames(t *testing.T) {
	dir := t.TempDir()
	saver, store, notes := newSaver(t, nil)
	store.SetOutputFolder(dir)
	store.SetAutoSave(true)

	content := "==== ../../etc/passwd ====\nfirst\n==== koniec ====\n" +
		"==== ??? ====\nsecond\n==== koniec ====\n" +
		"==== *** ====\nthird\n==== koniec ===="
	require.Equal(t, 3, saver.Save(content))

	data, err := os.ReadFile(filepath.Join(dir, "passwd"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	for _, name := range []string{"document-1700000000000.md", "document-1700000000001.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Len(t, notes.Successes(), 3)
	assert.Empty(t, notes.Errors())
}

func TestAutoSaverSaveIsNoopWhenOff(t *testing.T) {
	calls := 0
	saver, store, notes := newSaver(t, func(folder, name, content string) (string, error) {
		calls++
		return filepath.Join(folder, name), nil
	})
	content := "==== a.md ====\nx\n==== koniec ===="

	assert.Zero(t, saver.Save(content), "no folder")
	store.SetOutputFolder(t.TempDir())
	store.SetAutoSave(false)
	assert.Zero(t, saver.Save(content), "toggle off")
	assert.Zero(t, calls)
	assert.Empty(t, notes.Errors())
}

func TestAutoSaverReportsEachFailure(t *testing.T) {
	saver, store, notes := newSaver(t, func(folder, name, content string) (string, error) {
		if name == "bad.md" {
			return "", errors.New("disk full")
		}
		return filepath.Join(folder, name), nil
	})
	store.SetOutputFolder("/out")
	store.SetAutoSave(true)

	n := saver.Save("==== bad.md ====\nx\n==== koniec ====\n==== good.md ====\ny\n==== koniec ====")
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"Saved /out/good.md"}, notes.Successes())
	require.Len(t, notes.Errors(), 1)
	assert.Contains(t, notes.Errors()[0], "disk full")
}

func TestSaveBlocksIgnoresToggle(t *testing.T) {
	dir := t.TempDir()
	saver, store, notes := newSaver(t, nil)

	_, err := saver.SaveBlocks("==== a.md ====\nx\n==== koniec ====")
	assert.ErrorIs(t, err, storage.ErrNoFolder)
	assert.Equal(t, []string{"No output folder selected."}, notes.Errors())

	store.SetOutputFolder(dir)
	store.SetAutoSave(false)
	n, err := saver.SaveBlocks("==== a.md ====\nx\n==== koniec ====")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = saver.SaveBlocks("no documents here")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, notes.Errors(), "No documents found in this answer.")
}

func TestSaveWhole(t *testing.T) {
	dir := t.TempDir()
	saver, store, _ := newSaver(t, nil)
	store.SetOutputFolder(dir)

	path, err := saver.SaveWhole("# Whole answer")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "result-1700000000000.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Whole answer", string(data))
}
