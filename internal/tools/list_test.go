package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupListDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("h"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644))
	return dir
}

func TestListDirectoryDefault(t *testing.T) {
	dir := setupListDir(t)
	r := NewRegistry(dir)

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "list_directory", map[string]any{})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, "a.txt")
	assert.Contains(t, result.Output, "sub/")
	assert.NotContains(t, result.Output, ".hidden")
}

func TestListDirectoryIncludeHidden(t *testing.T) {
	dir := setupListDir(t)
	r := NewRegistry(dir)

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "list_directory", map[string]any{"include_hidden": true})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, ".hidden")
}

func TestListDirectoryRecursive(t *testing.T) {
	dir := setupListDir(t)
	r := NewRegistry(dir)

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "list_directory", map[string]any{"recursive": true})
	require.True(t, result.Success)
	assert.Contains(t, result.Output, filepath.Join("sub", "b.txt"))
}

func TestListDirectoryNotFound(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "list_directory", map[string]any{"path": "nope"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not-found")
}
