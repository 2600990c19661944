// Package store persists the session hierarchy planforge reconciles
// against: the long-lived work-breakdown tree for a project scope, plus
// paused approval drafts.
//
// Sessions form a two-level forest per scope: rows with a nil ParentID are
// top-level ("aspects"), rows with a ParentID are their children ("tasks").
// Sessions are never hard-deleted; archival flips IsActive off and stamps
// archive provenance into the metadata blob.
package store

import (
	"context"
	"time"
)

// Scope identifies one work-breakdown tree.
type Scope struct {
	OwnerID   string
	ProjectID string
}

// Session is one persisted node of the work-breakdown tree.
type Session struct {
	ID          string
	Title       string
	ParentID    *string // nil = top-level
	Description string
	IsActive    bool
	SortOrder   int
	Metadata    map[string]interface{}
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TopLevel reports whether the session is a top-level node.
func (s *Session) TopLevel() bool { return s.ParentID == nil }

// Metadata keys stamped on archived sessions.
const (
	MetaArchived      = "archived"
	MetaArchivedAt    = "archivedAt"
	MetaArchiveReason = "archiveReason"
	MetaSource        = "source"
)

// SessionStore is the hierarchical entity store the planner reads and the
// applier writes.
type SessionStore interface {
	// List returns every session in the scope, active and archived,
	// top-level rows first, each level ordered by sort order.
	List(ctx context.Context, scope Scope) ([]Session, error)

	// Insert stores a new session and returns its id (generated when the
	// given session has none).
	Insert(ctx context.Context, scope Scope, s Session) (string, error)

	// Update applies a partial field update to one session. Recognized
	// fields: title, description, parent_id, is_active, sort_order,
	// metadata. Unknown fields are rejected.
	Update(ctx context.Context, id string, fields map[string]interface{}) error
}
