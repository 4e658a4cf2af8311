package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdpilot/model"
)

func newTestHistory(t *testing.T) (*HistoryStore, string) {
	t.Helper()
	dir := t.TempDir()
	hs, err := NewHistoryStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { hs.Close() })
	return hs, dir
}

func msg(id, role, content string) model.DisplayMessage {
	return model.DisplayMessage{
		ID:        id,
		Role:      role,
		Content:   content,
		Timestamp: time.UnixMilli(1_700_000_000_000),
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	hs, dir := newTestHistory(t)

	in := []model.DisplayMessage{
		msg("1", model.RoleUser, "Fix typos"),
		msg("2", model.RoleAssistant, "Done"),
	}
	in[0].AssociatedFile = "/docs/a.md"
	in[1].AssociatedFile = "/docs/a.md"
	for _, m := range in {
		require.NoError(t, hs.Append(m))
	}
	// duplicate ids are ignored
	require.NoError(t, hs.Append(in[0]))

	got, err := hs.Load(0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, got[i].ID)
		assert.Equal(t, in[i].Role, got[i].Role)
		assert.Equal(t, in[i].Content, got[i].Content)
		assert.Equal(t, in[i].AssociatedFile, got[i].AssociatedFile)
		assert.True(t, in[i].Timestamp.Equal(got[i].Timestamp))
	}

	// survives reopening
	require.NoError(t, hs.Close())
	reopened, err := NewHistoryStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHistoryLoadLimit(t *testing.T) {
	hs, _ := newTestHistory(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, hs.Append(msg(id, model.RoleUser, id)))
	}

	got, err := hs.Load(2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "d", got[1].ID)
}

func TestHistoryClear(t *testing.T) {
	hs, _ := newTestHistory(t)
	require.NoError(t, hs.Append(msg("1", model.RoleUser, "x")))
	require.NoError(t, hs.Clear())

	got, err := hs.Load(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistorySearch(t *testing.T) {
	hs, _ := newTestHistory(t)
	require.NoError(t, hs.Append(msg("1", model.RoleUser, "Summarise the Quarterly report")))
	require.NoError(t, hs.Append(msg("2", model.RoleAssistant, "Here is the summary")))
	require.NoError(t, hs.Append(msg("3", model.RoleUser, "100% done_ok")))

	matches, err := hs.Search("quarterly", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "1", matches[0].Message.ID)

	matches, err = hs.Search("summ", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "2", matches[0].Message.ID, "newest first")

	matches, err = hs.Search("0%", 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "3", matches[0].Message.ID)

	matches, err = hs.Search("   ", 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short", "sh"))

	long := strings.Repeat("a", 200) + "needle" + strings.Repeat("b", 200)
	p := preview(long, "needle")
	assert.Contains(t, p, "needle")
	assert.True(t, strings.HasPrefix(p, "..."))
	assert.True(t, strings.HasSuffix(p, "..."))
}

func TestHistoryExportJSON(t *testing.T) {
	hs, dir := newTestHistory(t)
	require.NoError(t, hs.Append(msg("1", model.RoleUser, "hello")))

	out := filepath.Join(dir, "export.json")
	require.NoError(t, hs.ExportJSON(out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var got []model.DisplayMessage
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Content)
}
