package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileNeedsConfirmation(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	params := map[string]any{"path": "newfile.txt", "content": "hello world"}
	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "write_file", params)
	confirm := mustConfirm(t, result)
	assert.Equal(t, "write_file", confirm.Tool)
	assert.Equal(t, "", confirm.OldContent)
	assert.Equal(t, "hello world", confirm.NewContent)

	execResult, err := confirm.Execute()
	require.NoError(t, err)
	assert.True(t, execResult.Success)
	assert.Equal(t, true, execResult.Metadata["created"])

	data, err := os.ReadFile(filepath.Join(dir, "newfile.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

// TestWriteFileDefaultCreateDirs is write_file's analog to the diff
// handler's default-backup fixture: create_dirs is optional and defaults
// to true, so omitting it must still create missing parent directories.
func TestWriteFileDefaultCreateDirs(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	params := map[string]any{"path": "nested/sub/file.txt", "content": "data"}
	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "write_file", params)
	confirm := mustConfirm(t, result)

	_, err := confirm.Execute()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "nested", "sub", "file.txt"))
	require.NoError(t, err, "create_dirs should default to true when omitted")
	assert.Equal(t, "data", string(data))
}

func TestWriteFileCreateDirsFalseFailsOnMissingParent(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	params := map[string]any{"path": "nested/file.txt", "content": "data", "create_dirs": false}
	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "write_file", params)
	confirm := mustConfirm(t, result)

	_, err := confirm.Execute()
	assert.Error(t, err)
}

func TestWriteFileOverwriteReportsNotCreated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("old"), 0o644))
	r := NewRegistry(dir)

	params := map[string]any{"path": "existing.txt", "content": "new"}
	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "write_file", params)
	confirm := mustConfirm(t, result)
	assert.Equal(t, "old", confirm.OldContent)

	execResult, err := confirm.Execute()
	require.NoError(t, err)
	assert.Equal(t, false, execResult.Metadata["created"])
}

func TestWriteFileRejectsPathOutsideWorkspace(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	params := map[string]any{"path": "../escape.txt", "content": "x"}
	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "write_file", params)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "path-violation")
}
