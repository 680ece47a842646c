package mediator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bailu/internal/tools"
)

func newTestMediator(t *testing.T, workDir, stdin string) (*Mediator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	registry := tools.NewRegistry(workDir)
	m := New(registry, NewBackupStore(), WithIO(&out, strings.NewReader(stdin)))
	return m, &out
}

func TestDispatchDryRunNeverTouchesDisk(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "a.txt")

	m, _ := newTestMediator(t, workDir, "")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeDryRun}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "write_file",
		Params: map[string]any{"path": "a.txt", "content": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Output != "simulated" {
		t.Fatalf("got %+v", result)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("dry-run must not create the file")
	}
}

func TestDispatchReviewApprovedWritesFile(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "a.txt")

	m, out := newTestMediator(t, workDir, "y\n")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeReview}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "write_file",
		Params: map[string]any{"path": "a.txt", "content": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	data, readErr := os.ReadFile(target)
	if readErr != nil || string(data) != "hello" {
		t.Fatalf("file not written: %v %q", readErr, data)
	}
	if !strings.Contains(out.String(), "addition(s)") {
		t.Fatalf("expected diff summary in output, got %q", out.String())
	}
}

func TestDispatchReviewRejectedLeavesNoFile(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "a.txt")

	m, _ := newTestMediator(t, workDir, "n\n")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeReview}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "write_file",
		Params: map[string]any{"path": "a.txt", "content": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.Error != "user-cancelled" {
		t.Fatalf("got %+v", result)
	}
	if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
		t.Fatalf("rejected write must not create the file")
	}
}

func TestDispatchReviewQuitReturnsErrQuit(t *testing.T) {
	workDir := t.TempDir()

	m, _ := newTestMediator(t, workDir, "q\n")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeReview}

	_, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "write_file",
		Params: map[string]any{"path": "a.txt", "content": "hello"},
	})
	if err != ErrQuit {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
}

func TestDispatchReviewDiffThenApprove(t *testing.T) {
	workDir := t.TempDir()

	m, out := newTestMediator(t, workDir, "d\ny\n")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeReview}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "write_file",
		Params: map[string]any{"path": "a.txt", "content": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("got %+v", result)
	}
	if strings.Count(out.String(), "+++ a.txt") < 2 {
		t.Fatalf("expected the full diff to be printed a second time on 'd': %q", out.String())
	}
}

func TestDispatchReviewSafeToolSkipsApproval(t *testing.T) {
	workDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(workDir, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, _ := newTestMediator(t, workDir, "")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeReview}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "read_file",
		Params: map[string]any{"path": "a.txt"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("read-only dispatch should not require a prompt, got %+v", result)
	}
}

func TestDispatchAutoApplyNeverPrompts(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "a.txt")

	m, _ := newTestMediator(t, workDir, "") // empty stdin — a prompt read would fail
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeAutoApply}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{
		Tool:   "write_file",
		Params: map[string]any{"path": "a.txt", "content": "hello"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("got %+v", result)
	}
	if data, _ := os.ReadFile(target); string(data) != "hello" {
		t.Fatalf("file not written")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	workDir := t.TempDir()
	m, _ := newTestMediator(t, workDir, "")
	ec := tools.ExecutionContext{WorkspaceRoot: workDir, SafetyMode: tools.ModeAutoApply}

	result, err := m.Dispatch(context.Background(), ec, tools.ToolCall{Tool: "does_not_exist"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !strings.Contains(result.Error, "unknown-tool") {
		t.Fatalf("got %+v", result)
	}
}

func TestBackupStoreFIFOCap(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "a.txt")
	if err := os.WriteFile(target, []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewBackupStore()
	var first *BackupRecord
	for i := 0; i < maxBackupsPerFile+2; i++ {
		rec, err := store.Create("write_file", target, "v"+string(rune('0'+i)))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if i == 0 {
			first = rec
		}
	}

	if _, err := os.Stat(first.BackupPath); !os.IsNotExist(err) {
		t.Fatalf("oldest backup should have been evicted: %v", err)
	}
	latest, ok := store.Latest(target)
	if !ok {
		t.Fatal("expected a latest backup")
	}
	data, err := os.ReadFile(latest.BackupPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "" {
		t.Fatal("latest backup should not be empty")
	}
}

func TestRestoreByteExact(t *testing.T) {
	workDir := t.TempDir()
	target := filepath.Join(workDir, "a.txt")
	original := "one\ntwo\nthree\n"
	if err := os.WriteFile(target, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewBackupStore()
	rec, err := store.Create("write_file", target, original)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(target, []byte("mutated"), 0o644); err != nil {
		t.Fatal(err)
	}

	restored, err := Restore(rec)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != original {
		t.Fatalf("got %q", restored)
	}
	data, _ := os.ReadFile(target)
	if string(data) != original {
		t.Fatalf("file on disk not restored: %q", data)
	}
}
