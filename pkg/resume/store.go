package resume

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"vkdump/pkg/logger"
)

// State maps stringified peer IDs to the opaque pagination cursor returned by
// the API for the last fully processed page. A missing key means the
// conversation either was never started or has been drained to the end.
type State map[string]string

// Get returns the cursor for a conversation
func (s State) Get(peerID int64) (string, bool) {
	cursor, ok := s[strconv.FormatInt(peerID, 10)]
	return cursor, ok
}

// Set records the cursor for a conversation. An empty cursor removes the key:
// it means "fully drained", not "resume from nothing".
func (s State) Set(peerID int64, cursor string) {
	key := strconv.FormatInt(peerID, 10)
	if cursor == "" {
		delete(s, key)
		return
	}
	s[key] = cursor
}

// Store persists resume state as a single JSON file, fully rewritten on every
// save. It is the only owner of the file; nothing else reads or writes it.
type Store struct {
	path   string
	logger logger.Logger
}

// NewStore creates a resume store backed by the given file path
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		path:   path,
		logger: log,
	}
}

// Path returns the backing file path
func (st *Store) Path() string {
	return st.path
}

// Load reads the persisted state. An absent, unreadable or malformed file
// loads as empty state: corruption degrades to "no resume point", never an
// error, because downloads are idempotent and re-fetching a page is safe.
func (st *Store) Load() State {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			st.logger.WarnWithFields("resume state unreadable, starting fresh", map[string]interface{}{
				"path":  st.path,
				"error": err.Error(),
			})
		}
		return State{}
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		st.logger.WarnWithFields("resume state malformed, starting fresh", map[string]interface{}{
			"path":  st.path,
			"error": err.Error(),
		})
		return State{}
	}
	if state == nil {
		return State{}
	}

	return state
}

// Save rewrites the whole state file atomically via tmp+rename. Callers treat
// a failure as non-fatal: the worst outcome of a lost save is one page
// re-fetched on the next run.
func (st *Store) Save(state State) error {
	dir := filepath.Dir(st.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode resume state: %w", err)
	}

	tempPath := st.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write resume state: %w", err)
	}

	if err := os.Rename(tempPath, st.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace resume state: %w", err)
	}

	st.logger.DebugWithFields("resume state saved", map[string]interface{}{
		"path": st.path,
		"keys": len(state),
	})

	return nil
}
