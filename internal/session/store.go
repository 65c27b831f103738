package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Load for unknown run ids.
var ErrNotFound = errors.New("run not found")

// Store persists run transcripts as one JSON file per run.
type Store struct {
	basePath string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{basePath: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.basePath, id+".json")
}

// Save persists a session to disk, replacing any earlier version.
func (s *Store) Save(session *Session) error {
	if session.ID == "" {
		return errors.New("session has no id")
	}
	if err := os.MkdirAll(s.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// write then rename so a crash never leaves a truncated transcript
	tmp := s.path(session.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path(session.ID)); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load retrieves a specific session. A unique id prefix is accepted.
func (s *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		full, perr := s.resolvePrefix(id)
		if perr != nil {
			return nil, perr
		}
		data, err = os.ReadFile(s.path(full))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *Store) resolvePrefix(prefix string) (string, error) {
	ids, err := s.ids()
	if err != nil {
		return "", err
	}
	var match string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			if match != "" {
				return "", fmt.Errorf("run id %q is ambiguous", prefix)
			}
			match = id
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return match, nil
}

func (s *Store) ids() ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return ids, nil
}

// List returns all stored runs, newest first.
func (s *Store) List() ([]SessionMeta, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	sessions := []SessionMeta{}
	for _, id := range ids {
		data, err := os.ReadFile(s.path(id))
		if err != nil {
			continue // Skip unreadable files
		}
		var sess Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue // Skip invalid files
		}
		sessions = append(sessions, SessionMeta{
			ID:        sess.ID,
			Title:     sess.Title,
			Status:    sess.Status,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}
