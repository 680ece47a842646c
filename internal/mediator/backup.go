package mediator

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxBackupsPerFile bounds how far back a rollback can go: the per-file backup history is
// bounded to the N most recent records, older ones discarded FIFO.
const maxBackupsPerFile = 5

// BackupRecord is a pre-mutation snapshot kept alongside a file so a
// failed or regretted mutation can be rolled back.
type BackupRecord struct {
	ID           string
	OriginalPath string // absolute
	BackupPath   string // absolute, lives alongside OriginalPath
	Tool         string
	CreatedAt    time.Time
}

// BackupStore is a flat map keyed by absolute original path, owned
// solely by the mediator — there is no cross-session locking because
// the contract is single-user, single-process.
type BackupStore struct {
	mu      sync.Mutex
	history map[string][]*BackupRecord
}

func NewBackupStore() *BackupStore {
	return &BackupStore{history: make(map[string][]*BackupRecord)}
}

// Create snapshots content as a new backup generation for originalPath,
// writing it to disk and evicting the oldest generation's file once the
// per-file history exceeds maxBackupsPerFile.
//
// The backup file is named "<path>.bak.N" (N counting up from the
// path's current generation) rather than the diff handler's own
// "<path>.backup" single-slot convention, so the two don't collide:
// apply_diff writes its own backup for its internal write-then-restore
// safety net, while this store keeps a bounded history for user-
// initiated rollback regardless of which tool mutated the file.
func (s *BackupStore) Create(tool, originalPath, content string) (*BackupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := 1
	if prev := s.history[originalPath]; len(prev) > 0 {
		suffix := strings.TrimPrefix(prev[len(prev)-1].BackupPath, originalPath+".bak.")
		if n, err := strconv.Atoi(suffix); err == nil {
			gen = n + 1
		}
	}
	backupPath := fmt.Sprintf("%s.bak.%d", originalPath, gen)
	if err := os.WriteFile(backupPath, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("fs-fault: write backup: %w", err)
	}

	rec := &BackupRecord{
		ID:           uuid.NewString(),
		OriginalPath: originalPath,
		BackupPath:   backupPath,
		Tool:         tool,
		CreatedAt:    time.Now(),
	}

	records := append(s.history[originalPath], rec)
	if len(records) > maxBackupsPerFile {
		evicted := records[0]
		os.Remove(evicted.BackupPath)
		records = records[1:]
	}
	s.history[originalPath] = records

	return rec, nil
}

// Latest returns the most recent backup for originalPath, if any.
func (s *BackupStore) Latest(originalPath string) (*BackupRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.history[originalPath]
	if len(records) == 0 {
		return nil, false
	}
	return records[len(records)-1], true
}

// Restore reads rec's backup file and writes it back over the original
// path, returning the restored byte-exact contents.
func Restore(rec *BackupRecord) ([]byte, error) {
	data, err := os.ReadFile(rec.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("fs-fault: read backup: %w", err)
	}
	if err := os.WriteFile(rec.OriginalPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("fs-fault: restore from backup: %w", err)
	}
	return data, nil
}
