package agent

import (
	"os"
	"path/filepath"
	"testing"

	"bailu/internal/llm"
)

func TestCheckpointTrackerRewindConversation(t *testing.T) {
	conv := NewConversation("system prompt")
	tracker := NewCheckpointTracker(conv)

	tracker.Create("first turn")
	conv.Append(llm.TextMessage("assistant", "reply one"))
	conv.Append(llm.TextMessage("user", "second turn"))
	tracker.Create("second turn")
	conv.Append(llm.TextMessage("assistant", "reply two"))

	if got := conv.Len(); got != 4 {
		t.Fatalf("expected 4 messages before rewind, got %d", got)
	}

	if err := tracker.RewindConversation(1); err != nil {
		t.Fatalf("RewindConversation: %v", err)
	}
	if got := conv.Len(); got != 1 {
		t.Fatalf("expected conversation truncated to 1 message, got %d", got)
	}
}

func TestCheckpointTrackerRewindFilesRestoresOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	conv := NewConversation("system prompt")
	tracker := NewCheckpointTracker(conv)
	tracker.NoteWrite(path)
	tracker.Create("turn one")

	if err := os.WriteFile(path, []byte("modified"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := tracker.RewindFiles(1); err != nil {
		t.Fatalf("RewindFiles: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "original" {
		t.Fatalf("expected original content restored, got %q", got)
	}
}

func TestCheckpointTrackerRewindFilesRemovesNewlyCreated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.txt")

	conv := NewConversation("system prompt")
	tracker := NewCheckpointTracker(conv)
	tracker.Create("turn one")

	tracker.NoteWrite(path)
	if err := os.WriteFile(path, []byte("created after checkpoint"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := tracker.RewindFiles(1); err != nil {
		t.Fatalf("RewindFiles: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file created after the checkpoint to be removed, stat err=%v", err)
	}
}

func TestCheckpointTrackerInvalidTurn(t *testing.T) {
	conv := NewConversation("system prompt")
	tracker := NewCheckpointTracker(conv)
	if err := tracker.RewindConversation(1); err == nil {
		t.Fatal("expected an error rewinding to a nonexistent checkpoint")
	}
}
