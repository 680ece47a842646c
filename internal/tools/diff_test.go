package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustConfirm(t *testing.T, result ToolResult) *NeedsConfirmation {
	t.Helper()
	require.False(t, result.Success, "expected a NeedsConfirmation-carrying failure, got success: %s", result.Output)
	confirm, ok := result.Metadata["confirm"].(*NeedsConfirmation)
	require.True(t, ok, "expected Metadata[\"confirm\"] to hold a *NeedsConfirmation")
	return confirm
}

// TestApplyDiffDefaultCreateBackup is the literal scenario-4 fixture: a.txt
// starts as "one\ntwo\nthree\n" and the invoke carries no create_backup
// param at all, so the default (true) must still produce a.txt.backup.
func TestApplyDiffDefaultCreateBackup(t *testing.T) {
	dir := t.TempDir()
	original := "one\ntwo\nthree\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(original), 0o644))

	r := NewRegistry(dir)
	params := map[string]any{
		"path": "a.txt",
		"diff": "@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n",
	}

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "apply_diff", params)
	confirm := mustConfirm(t, result)

	execResult, err := confirm.Execute()
	require.NoError(t, err)
	assert.True(t, execResult.Success)
	assert.Equal(t, 1, execResult.Metadata["linesAdded"])
	assert.Equal(t, 1, execResult.Metadata["linesRemoved"])

	backup, err := os.ReadFile(filepath.Join(dir, "a.txt.backup"))
	require.NoError(t, err, "default create_backup=true should still write a.txt.backup when omitted")
	assert.Equal(t, original, string(backup))

	updated, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one\nTWO\nthree\n", string(updated))
}

func TestApplyDiffCreateBackupFalseSkipsBackup(t *testing.T) {
	dir := t.TempDir()
	original := "one\ntwo\nthree\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(original), 0o644))

	r := NewRegistry(dir)
	params := map[string]any{
		"path":          "a.txt",
		"diff":          "@@ -1,3 +1,3 @@\n one\n-two\n+TWO\n three\n",
		"create_backup": false,
	}

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "apply_diff", params)
	confirm := mustConfirm(t, result)

	_, err := confirm.Execute()
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "a.txt.backup"))
	assert.True(t, os.IsNotExist(err), "create_backup=false should not write a.txt.backup")
}

func TestApplyDiffNewFile(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	params := map[string]any{
		"path": "fresh.txt",
		"diff": "--- /dev/null\n+++ fresh.txt\n@@ -0,0 +1,2 @@\n+hello\n+world\n",
	}

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "apply_diff", params)
	confirm := mustConfirm(t, result)

	_, err := confirm.Execute()
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "fresh.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(data))

	_, err = os.Stat(filepath.Join(dir, "fresh.txt.backup"))
	assert.True(t, os.IsNotExist(err), "a brand-new file has nothing to back up")
}

func TestApplyDiffMissingFileWithoutDevNullFails(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	params := map[string]any{
		"path": "missing.txt",
		"diff": "@@ -1,1 +1,1 @@\n-old\n+new\n",
	}

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "apply_diff", params)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not-found")
}

func TestApplyDiffRejectsMissingHunkHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("one\n"), 0o644))
	r := NewRegistry(dir)

	params := map[string]any{
		"path": "a.txt",
		"diff": "+just a line, no hunk header\n",
	}

	_, result := r.Dispatch(context.Background(), ExecutionContext{WorkspaceRoot: dir}, "apply_diff", params)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid-arguments")
}

// TestApplyUnifiedDiffHunkCursorWalk exercises the cursor-walk directly:
// a single hunk touching the middle of a five-line file must leave the
// untouched lines before and after it byte-for-byte intact.
func TestApplyUnifiedDiffHunkCursorWalk(t *testing.T) {
	original := splitLinesKeepEnding("alpha\nbeta\ngamma\ndelta\nepsilon\n")
	diff := "@@ -2,2 +2,2 @@\n beta\n-gamma\n+GAMMA\n"

	out, added, removed, err := applyUnifiedDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
	assert.Equal(t, "alpha\nbeta\nGAMMA\ndelta\nepsilon\n", joinLines(out))
}

func TestApplyUnifiedDiffMultipleHunks(t *testing.T) {
	original := splitLinesKeepEnding("one\ntwo\nthree\nfour\nfive\n")
	diff := "@@ -1,1 +1,1 @@\n-one\n+ONE\n@@ -5,1 +5,1 @@\n-five\n+FIVE\n"

	out, added, removed, err := applyUnifiedDiff(original, diff)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, removed)
	assert.Equal(t, "ONE\ntwo\nthree\nfour\nFIVE\n", joinLines(out))
}

func TestApplyUnifiedDiffRemovePastEndOfFileFails(t *testing.T) {
	original := splitLinesKeepEnding("one\n")
	diff := "@@ -1,2 +1,2 @@\n one\n-two\n"

	_, _, _, err := applyUnifiedDiff(original, diff)
	assert.Error(t, err)
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += l
	}
	return out
}
