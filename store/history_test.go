package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestHistory_AddAndAll(t *testing.T) {
	h := NewHistory()
	h.Add("echo one", 0, 100)
	h.Add("echo two", 1, 200)

	all := h.All()
	require.Len(t, all, 2)
	assert.Equal(t, "echo one", all[0].Command)
	assert.Equal(t, "echo two", all[1].Command)
}

func TestHistory_OverflowEvictsOldestFIFO(t *testing.T) {
	h := NewHistory()
	for i := 0; i < HistoryCap+10; i++ {
		h.Add("cmd", 0, int64(i))
	}
	all := h.All()
	require.Len(t, all, HistoryCap)
	assert.Equal(t, int64(10), all[0].Timestamp)
	assert.Equal(t, int64(HistoryCap+9), all[len(all)-1].Timestamp)
}

func TestHistory_LastAndAt(t *testing.T) {
	h := NewHistory()
	h.Add("a", 0, 1)
	h.Add("b", 0, 2)
	h.Add("c", 0, 3)

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, "c", last)

	at1, ok := h.At(1)
	require.True(t, ok)
	assert.Equal(t, "b", at1)

	_, ok = h.At(99)
	assert.False(t, ok)
}

func TestHistory_SaveLoadRoundTrip(t *testing.T) {
	h := NewHistory()
	h.Add("echo one", 0, 1000)
	h.Add("echo two", 7, 1001)

	path := filepath.Join(t.TempDir(), "history")
	require.NoError(t, h.Save(path))

	loaded := NewHistory()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, h.All(), loaded.All())
}

func TestHistory_LoadMissingFileIsNotAnError(t *testing.T) {
	h := NewHistory()
	err := h.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.NoError(t, err)
	assert.Empty(t, h.All())
}

func TestHistory_LoadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history")
	content := "1000 0 echo one\nnot a valid line\n1001 1 echo two\n"
	require.NoError(t, writeFile(path, content))

	h := NewHistory()
	require.NoError(t, h.Load(path))
	require.Len(t, h.All(), 2)
}
