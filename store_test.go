package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, nil)
	ctx := context.Background()
	path := filepath.Join(dir, "nested", "plan.flow")

	require.NoError(t, store.SaveProjectBlob(ctx, path, []byte(`{"a":1}`)))
	require.NoError(t, store.SaveProjectBlob(ctx, path, []byte(`{"a":2}`)))

	data, err := store.LoadProjectBlob(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStoreLoadMissing(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir, nil)
	_, err := store.LoadProjectBlob(context.Background(), filepath.Join(dir, "nope.flow"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func writeProjectFile(t *testing.T, dir, name, body string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestListRecentProjects(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	writeProjectFile(t, dir, "old.flow", `{"meta":{"name":"Old One","created":"2026-01-02T03:04:05Z"}}`, base)
	newest := writeProjectFile(t, dir, "new.flow", `{"meta":{"name":""}}`, base.Add(2*time.Hour))
	writeProjectFile(t, dir, "broken.flow", `not json`, base.Add(time.Hour))
	writeProjectFile(t, dir, "ignored.png", `x`, base.Add(3*time.Hour))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.flow"), 0o755))

	got, err := NewLocalStore(dir, nil).ListRecentProjects(context.Background(), recentProjectsLimit)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "new", got[0].Name, "empty meta name falls back to the file name")
	assert.Equal(t, newest, got[0].FilePath)
	assert.True(t, got[0].Created.Equal(got[0].Modified), "created falls back to the file time")

	assert.Equal(t, "broken", got[1].Name)

	assert.Equal(t, "Old One", got[2].Name)
	assert.True(t, got[2].Created.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestListRecentProjectsLimit(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		writeProjectFile(t, dir, fmt.Sprintf("p%d.flow", i), `{}`, base.Add(time.Duration(i)*time.Minute))
	}

	got, err := NewLocalStore(dir, nil).ListRecentProjects(context.Background(), recentProjectsLimit)
	require.NoError(t, err)
	require.Len(t, got, recentProjectsLimit)
	assert.Equal(t, "p7", got[0].Name)
	assert.Equal(t, "p3", got[4].Name)
}

func TestListRecentProjectsMissingDir(t *testing.T) {
	got, err := NewLocalStore(filepath.Join(t.TempDir(), "absent"), nil).ListRecentProjects(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestListRecentProjectsCancelled(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "a.flow", `{}`, time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalStore(dir, nil).ListRecentProjects(ctx, 5)
	assert.ErrorIs(t, err, context.Canceled)
}
