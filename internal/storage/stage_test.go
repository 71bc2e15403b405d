package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestStageWriteOverwrites(t *testing.T) {
	s, err := NewStage(filepath.Join(t.TempDir(), "stage"), testLogger)
	require.NoError(t, err)

	path, err := s.Write("potter-family_harry-potter", "first")
	require.NoError(t, err)
	_, err = s.Write("potter-family_harry-potter", "second")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStageRejectsPathNames(t *testing.T) {
	s, err := NewStage(t.TempDir(), testLogger)
	require.NoError(t, err)
	_, err = s.Write("../escape", "x")
	assert.Error(t, err)
	_, err = s.Write("", "x")
	assert.Error(t, err)
}

func TestStagePendingAndClear(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStage(dir, testLogger)
	require.NoError(t, err)

	for _, name := range []string{"b_x", "a_x"} {
		_, err := s.Write(name, "text of "+name)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".stage-123.tmp"), []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	docs, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a_x", docs[0].Name)
	assert.Equal(t, "text of a_x", docs[0].Text)
	assert.Equal(t, "b_x", docs[1].Name)

	// A document staged after listing survives the clear.
	_, err = s.Write("c_x", "late")
	require.NoError(t, err)
	require.NoError(t, s.Clear([]string{"a_x", "b_x", "gone_already"}))

	docs, err = s.Pending()
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c_x", docs[0].Name)
}
