// Package session implements on-disk persistence for one conversation
// per session: one JSON file per session, with atomic writes and a
// listing helper.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"bailu/internal/llm"
)

// Stats summarizes a session's resource usage, refreshed on every save.
type Stats struct {
	MessageCount      int `json:"messageCount"`
	ToolCallsExecuted int `json:"toolCallsExecuted"`
	EstimatedTokens   int `json:"estimatedTokens"`
}

// Record is the on-disk shape of one session, matching the
// {id, name?, createdAt, lastUpdatedAt, messages, stats, activeFiles}
// tuple.
type Record struct {
	ID            string        `json:"id"`
	Name          string        `json:"name,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	LastUpdatedAt time.Time     `json:"lastUpdatedAt"`
	Messages      []llm.Message `json:"messages"`
	Stats         Stats         `json:"stats"`
	ActiveFiles   []string      `json:"activeFiles"`
}

// Preview returns the first non-empty user message, truncated to 100
// characters, for display in a session list.
func (r Record) Preview() string {
	for _, msg := range r.Messages {
		if msg.Role == "user" && msg.ContentString() != "" {
			p := msg.ContentString()
			if runes := []rune(p); len(runes) > 100 {
				p = string(runes[:100])
			}
			return p
		}
	}
	return ""
}

// Store persists Records as one JSON file per session under dir.
type Store struct {
	dir string
}

// NewStore constructs a Store rooted at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// New creates a fresh, unsaved Record with a generated ID.
func New(name string) *Record {
	now := time.Now()
	return &Record{
		ID:            uuid.NewString(),
		Name:          name,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Save writes rec to disk atomically (write to a temp file, then
// rename), refreshing LastUpdatedAt first.
func (s *Store) Save(rec *Record) error {
	rec.LastUpdatedAt = time.Now()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	path := s.path(rec.ID)
	tmp, err := os.CreateTemp(s.dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("finalize session file: %w", err)
	}
	return nil
}

// Load reads the session with the given ID.
func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &rec, nil
}

// List returns every session's Record, sorted by LastUpdatedAt
// descending, capped at max (0 means unbounded). Corrupt or unreadable
// files are skipped rather than failing the whole listing.
func (s *Store) List(max int) ([]Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var records []Record
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].LastUpdatedAt.After(records[j].LastUpdatedAt)
	})
	if max > 0 && len(records) > max {
		records = records[:max]
	}
	return records, nil
}

// Delete removes the session file with the given ID.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// ProjectDir returns the per-workspace sessions directory under the
// user's config directory: <configDir>/projects/<hash>/sessions, hashed
// so two workspaces never collide.
func ProjectDir(configDir, workspaceRoot string) (string, error) {
	absPath, err := filepath.Abs(workspaceRoot)
	if err != nil {
		absPath = workspaceRoot
	}
	return filepath.Join(configDir, "projects", projectHash(absPath), "sessions"), nil
}

// projectHash returns a deterministic 16-char hex hash of an absolute
// workspace path, used to isolate sessions per project.
func projectHash(absPath string) string {
	h := sha256.Sum256([]byte(filepath.Clean(absPath)))
	return hex.EncodeToString(h[:])[:16]
}
