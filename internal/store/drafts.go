package store

import (
	"context"
	"database/sql"
	"fmt"

	"planforge/internal/approval"
	"planforge/internal/logging"
)

// SaveDraft persists a paused approval session for the scope+source pair.
// Saving again replaces the previous draft.
func (s *LocalStore) SaveDraft(ctx context.Context, scope Scope, source approval.Source, aspects []approval.Aspect) error {
	payload, err := approval.Marshal(aspects)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO approval_drafts (owner_id, project_id, source, payload, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		scope.OwnerID, scope.ProjectID, string(source), string(payload),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to save draft for %s/%s/%s: %v",
			scope.OwnerID, scope.ProjectID, source, err)
		return fmt.Errorf("failed to save draft: %w", err)
	}

	logging.StoreDebug("Saved draft: scope=%s/%s source=%s aspects=%d",
		scope.OwnerID, scope.ProjectID, source, len(aspects))
	return nil
}

// LoadDraft restores a paused approval session. Returns nil with no error
// when no draft exists for the scope+source pair.
func (s *LocalStore) LoadDraft(ctx context.Context, scope Scope, source approval.Source) ([]approval.Aspect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM approval_drafts
		 WHERE owner_id = ? AND project_id = ? AND source = ?`,
		scope.OwnerID, scope.ProjectID, string(source),
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	aspects, err := approval.Unmarshal([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}

	logging.StoreDebug("Loaded draft: scope=%s/%s source=%s aspects=%d",
		scope.OwnerID, scope.ProjectID, source, len(aspects))
	return aspects, nil
}

// DeleteDraft removes a draft once its sync has been applied.
func (s *LocalStore) DeleteDraft(ctx context.Context, scope Scope, source approval.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM approval_drafts WHERE owner_id = ? AND project_id = ? AND source = ?`,
		scope.OwnerID, scope.ProjectID, string(source),
	)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
