package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"planforge/internal/logging"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// LocalStore implements SessionStore on a local SQLite database.
type LocalStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// NewLocalStore initializes the SQLite database at the given path.
func NewLocalStore(path string) (*LocalStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewLocalStore")
	defer timer.Stop()

	logging.Store("Initializing LocalStore at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &LocalStore{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("LocalStore ready (sessions + drafts)")
	return s, nil
}

// initialize creates the required tables.
func (s *LocalStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		title TEXT NOT NULL,
		parent_id TEXT,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_scope ON sessions(owner_id, project_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_parent ON sessions(parent_id);

	CREATE TABLE IF NOT EXISTS approval_drafts (
		owner_id TEXT NOT NULL,
		project_id TEXT NOT NULL,
		source TEXT NOT NULL,
		payload TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (owner_id, project_id, source)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// List returns every session in the scope, top-level rows first, each level
// ordered by sort order then id.
func (s *LocalStore) List(ctx context.Context, scope Scope) ([]Session, error) {
	timer := logging.StartTimer(logging.CategoryStore, "List")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, parent_id, description, is_active, sort_order, metadata, created_at, updated_at
		 FROM sessions
		 WHERE owner_id = ? AND project_id = ?
		 ORDER BY (parent_id IS NOT NULL), sort_order, id`,
		scope.OwnerID, scope.ProjectID,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to list sessions for %s/%s: %v", scope.OwnerID, scope.ProjectID, err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess     Session
			parentID sql.NullString
			active   int
			metaJSON string
		)
		if err := rows.Scan(&sess.ID, &sess.Title, &parentID, &sess.Description,
			&active, &sess.SortOrder, &metaJSON, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if parentID.Valid {
			pid := parentID.String
			sess.ParentID = &pid
		}
		sess.IsActive = active != 0
		if metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &sess.Metadata); err != nil {
				logging.Get(logging.CategoryStore).Warn("Corrupt metadata on session %s: %v", sess.ID, err)
				sess.Metadata = nil
			}
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	logging.StoreDebug("Listed %d sessions for scope %s/%s", len(sessions), scope.OwnerID, scope.ProjectID)
	return sessions, nil
}

// Insert stores a new session in the scope, generating an id when the
// session has none.
func (s *LocalStore) Insert(ctx context.Context, scope Scope, sess Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := sess.ID
	if id == "" {
		id = uuid.New().String()
	}

	metaJSON, err := marshalMetadata(sess.Metadata)
	if err != nil {
		return "", err
	}

	var parentID interface{}
	if sess.ParentID != nil {
		parentID = *sess.ParentID
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, project_id, title, parent_id, description, is_active, sort_order, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, scope.OwnerID, scope.ProjectID, sess.Title, parentID,
		sess.Description, boolToInt(sess.IsActive), sess.SortOrder, metaJSON,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to insert session %q: %v", sess.Title, err)
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	logging.StoreDebug("Inserted session %s (title=%q parent=%v)", id, sess.Title, sess.ParentID != nil)
	return id, nil
}

// updatableColumns whitelists the partial-update fields.
var updatableColumns = map[string]bool{
	"title":       true,
	"description": true,
	"parent_id":   true,
	"is_active":   true,
	"sort_order":  true,
	"metadata":    true,
}

// Update applies a partial field update to one session and bumps
// updated_at. Metadata values may be passed as map[string]interface{} and
// are stored as a JSON blob.
func (s *LocalStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !updatableColumns[col] {
			return fmt.Errorf("unknown session field %q", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, 0, len(cols)+1)
	args := make([]interface{}, 0, len(cols)+1)
	for _, col := range cols {
		val := fields[col]
		switch v := val.(type) {
		case bool:
			val = boolToInt(v)
		case map[string]interface{}:
			metaJSON, err := marshalMetadata(v)
			if err != nil {
				return err
			}
			val = metaJSON
		}
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to update session %s: %v", id, err)
		return fmt.Errorf("failed to update session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s not found", id)
	}

	logging.StoreDebug("Updated session %s (%d fields)", id, len(fields))
	return nil
}

func marshalMetadata(meta map[string]interface{}) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
