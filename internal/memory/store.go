// Package memory provides long-term memory for the agent: memory records and
// tool descriptions kept in sqlite and searched through bleve indexes.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const defaultLimit = 10

// Store is the long-term memory. It implements engine.MemoryStore and
// engine.ToolIndex.
type Store struct {
	db        *sql.DB
	knowledge bleve.Index
	tools     bleve.Index
	dir       string
	ephemeral bool
	logger    *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open opens the memory under dir, creating it if needed. An empty dir opens
// an ephemeral store that is deleted on Close.
func Open(ctx context.Context, dir string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ephemeral := dir == ""
	if ephemeral {
		tmp, err := os.MkdirTemp("", "planloop-memory-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create temp memory dir: %w", err)
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory dir: %w", err)
	}

	s := &Store{dir: dir, ephemeral: ephemeral, logger: logger}
	if err := s.open(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) open(ctx context.Context) error {
	dsn := filepath.Join(s.dir, "memory.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite doesn't support multiple writers well
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := s.initSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	knowledgePath, toolsPath := "", ""
	if !s.ephemeral {
		knowledgePath = filepath.Join(s.dir, "knowledge.bleve")
		toolsPath = filepath.Join(s.dir, "tools.bleve")
	}
	if s.knowledge, err = openIndex(knowledgePath, knowledgeMapping(), s.logger); err != nil {
		return err
	}
	if s.tools, err = openIndex(toolsPath, toolMapping(), s.logger); err != nil {
		return err
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id         TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		content    TEXT NOT NULL,
		metadata   TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_created ON memories(created_at);

	CREATE TABLE IF NOT EXISTS tools (
		name        TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS context_kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close releases the database and indexes. Ephemeral stores are removed.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.knowledge != nil {
			errs = append(errs, s.knowledge.Close())
		}
		if s.tools != nil {
			errs = append(errs, s.tools.Close())
		}
		if s.db != nil {
			errs = append(errs, s.db.Close())
		}
		if s.ephemeral {
			errs = append(errs, os.RemoveAll(s.dir))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Add stores content with metadata and returns its id. The "type" metadata
// key becomes the record kind.
func (s *Store) Add(ctx context.Context, content string, metadata map[string]string) (string, error) {
	id := uuid.NewString()
	kind := metadata["type"]
	if kind == "" {
		kind = "note"
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, kind, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, content, string(meta), time.Now().UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to insert memory: %w", err)
	}

	if err := s.knowledge.Index(id, map[string]any{"content": content, "kind": kind}); err != nil {
		return "", fmt.Errorf("failed to index memory: %w", err)
	}
	return id, nil
}

// RetrieveRelevant returns up to limit memory contents in relevance order.
// When the query matches nothing, the most recent memories are returned.
func (s *Store) RetrieveRelevant(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultLimit
	}

	var ids []string
	if strings.TrimSpace(query) != "" {
		var err error
		if ids, err = search(s.knowledge, query, limit); err != nil {
			return nil, err
		}
	}
	if len(ids) == 0 {
		return s.recent(ctx, limit)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		var content string
		err := s.db.QueryRowContext(ctx, `SELECT content FROM memories WHERE id = ?`, id).Scan(&content)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load memory %s: %w", id, err)
		}
		out = append(out, content)
	}
	return out, nil
}

func (s *Store) recent(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT content FROM memories ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		out = append(out, content)
	}
	return out, rows.Err()
}

// Count returns the number of stored memories.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

// IndexTool records a tool description so RetrieveTools can rank it.
func (s *Store) IndexTool(ctx context.Context, name, description string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tools (name, description, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET description = excluded.description, updated_at = excluded.updated_at`,
		name, description, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert tool %s: %w", name, err)
	}
	if err := s.tools.Index(name, map[string]any{"name": name, "description": description}); err != nil {
		return fmt.Errorf("failed to index tool %s: %w", name, err)
	}
	return nil
}

// RetrieveTools returns up to limit tool names ranked against query.
func (s *Store) RetrieveTools(_ context.Context, query string, limit int) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return search(s.tools, query, limit)
}

// ContextStore returns a context store backed by this database.
func (s *Store) ContextStore() *SQLiteContextStore {
	return &SQLiteContextStore{db: s.db}
}
