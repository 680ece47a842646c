package agent

import (
	"fmt"
	"os"
	"time"

	"bailu/internal/llm"
)

// fileSnapshot records a file's state the first time a checkpoint
// observes it, so a later rewind can distinguish "didn't exist" from
// "existed but was empty."
type fileSnapshot struct {
	existed bool
	content []byte
}

// Checkpoint captures conversation and file state at the start of a
// user turn, so RewindConversation/RewindFiles can later undo an
// entire turn's worth of tool-driven mutation in one step.
type Checkpoint struct {
	Turn      int
	Timestamp time.Time
	Preview   string
	MsgIndex  int
	Files     map[string][]byte // nil value means the file didn't exist yet
}

// CheckpointItem is a lightweight view of a checkpoint for display,
// omitting the file snapshots.
type CheckpointItem struct {
	Turn      int
	Timestamp time.Time
	Preview   string
}

// CheckpointTracker accumulates per-turn checkpoints for a single
// Conversation, independent of the mediator's own per-call BackupStore:
// this tracks whole-turn state for /rewind, not per-mutation rollback.
type CheckpointTracker struct {
	conv        *Conversation
	checkpoints []Checkpoint
	originals   map[string]*fileSnapshot
}

// NewCheckpointTracker creates a tracker bound to conv.
func NewCheckpointTracker(conv *Conversation) *CheckpointTracker {
	return &CheckpointTracker{
		conv:      conv,
		originals: make(map[string]*fileSnapshot),
	}
}

// Create saves a checkpoint before a user turn begins. userMessage is
// truncated to 100 characters for display.
func (t *CheckpointTracker) Create(userMessage string) {
	preview := userMessage
	if runes := []rune(preview); len(runes) > 100 {
		preview = string(runes[:100])
	}

	files := make(map[string][]byte, len(t.originals))
	for path := range t.originals {
		data, err := os.ReadFile(path)
		if err != nil {
			files[path] = nil
		} else {
			files[path] = data
		}
	}

	t.checkpoints = append(t.checkpoints, Checkpoint{
		Turn:      len(t.checkpoints) + 1,
		Timestamp: time.Now(),
		Preview:   preview,
		MsgIndex:  t.conv.Len(),
		Files:     files,
	})
}

// NoteWrite records path's pre-session state the first time it is
// modified. Subsequent calls for the same path are no-ops, so the
// recorded state is always the state before ANY modification this
// session made, not just the most recent one.
func (t *CheckpointTracker) NoteWrite(path string) {
	if _, ok := t.originals[path]; ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.originals[path] = &fileSnapshot{existed: false}
	} else {
		t.originals[path] = &fileSnapshot{existed: true, content: data}
	}
}

// Items returns a lightweight list of all checkpoints for display.
func (t *CheckpointTracker) Items() []CheckpointItem {
	items := make([]CheckpointItem, len(t.checkpoints))
	for i, cp := range t.checkpoints {
		items[i] = CheckpointItem{Turn: cp.Turn, Timestamp: cp.Timestamp, Preview: cp.Preview}
	}
	return items
}

// RewindConversation truncates the bound conversation back to the
// state it had when checkpoint turn was created.
func (t *CheckpointTracker) RewindConversation(turn int) error {
	cp, err := t.checkpointAt(turn)
	if err != nil {
		return err
	}
	msgs := t.conv.Messages()[:cp.MsgIndex]
	t.conv.messages = append([]llm.Message(nil), msgs...)
	t.checkpoints = t.checkpoints[:turn-1]
	return nil
}

// RewindFiles restores every tracked file to its state at checkpoint
// turn, including files first modified after that checkpoint (which
// are restored to their pre-session originals).
func (t *CheckpointTracker) RewindFiles(turn int) error {
	cp, err := t.checkpointAt(turn)
	if err != nil {
		return err
	}

	for path, content := range cp.Files {
		if content == nil {
			os.Remove(path)
			continue
		}
		if err := os.WriteFile(path, content, 0644); err != nil {
			return fmt.Errorf("restore %s: %w", path, err)
		}
	}

	for path, snap := range t.originals {
		if _, inCheckpoint := cp.Files[path]; inCheckpoint {
			continue
		}
		if !snap.existed {
			os.Remove(path)
			continue
		}
		if err := os.WriteFile(path, snap.content, 0644); err != nil {
			return fmt.Errorf("restore original %s: %w", path, err)
		}
	}

	trimmed := make(map[string]*fileSnapshot, len(cp.Files))
	for path := range cp.Files {
		if snap, ok := t.originals[path]; ok {
			trimmed[path] = snap
		}
	}
	t.originals = trimmed
	return nil
}

// RewindAll restores both files and conversation to checkpoint turn.
func (t *CheckpointTracker) RewindAll(turn int) error {
	if err := t.RewindFiles(turn); err != nil {
		return err
	}
	return t.RewindConversation(turn)
}

func (t *CheckpointTracker) checkpointAt(turn int) (Checkpoint, error) {
	if turn < 1 || turn > len(t.checkpoints) {
		return Checkpoint{}, fmt.Errorf("invalid checkpoint turn: %d", turn)
	}
	return t.checkpoints[turn-1], nil
}
