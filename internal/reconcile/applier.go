package reconcile

import (
	"context"
	"fmt"
	"time"

	"planforge/internal/logging"
	"planforge/internal/store"
)

// defaultArchiveReason is stamped when a rejected section carries no
// reviewer comment.
const defaultArchiveReason = "rejected during plan review"

// ItemOutcome records the result of one persistence operation.
type ItemOutcome struct {
	Action    Action `json:"action"`
	Title     string `json:"title"`
	SessionID string `json:"sessionId,omitempty"`
	Err       string `json:"error,omitempty"`
}

// Failed reports whether the operation failed.
func (o ItemOutcome) Failed() bool { return o.Err != "" }

// ApplyResult reports a plan application. Success covers only the
// top-level flow (reading the scope); individual operations are
// best-effort and their outcomes are listed in Items so callers can retry
// precisely the failed subset.
type ApplyResult struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Items   []ItemOutcome `json:"items"`
}

// Failed returns the outcomes of operations that did not succeed.
func (r *ApplyResult) Failed() []ItemOutcome {
	var failed []ItemOutcome
	for _, o := range r.Items {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// FullyApplied reports whether every operation succeeded.
func (r *ApplyResult) FullyApplied() bool {
	return r.Success && len(r.Failed()) == 0
}

// Applier executes sync plans against a session store.
type Applier struct {
	sessions store.SessionStore
	now      func() time.Time
}

// NewApplier creates an applier over the given store.
func NewApplier(sessions store.SessionStore) *Applier {
	return &Applier{sessions: sessions, now: time.Now}
}

// Apply executes a plan sequentially, in plan order, assigning an
// increasing top-level sort index as each item is processed. Archive items
// (including archive actions nested under kept/renamed aspects) run after
// everything else, each cascading depth-first over the entity's live
// descendants.
//
// Writes are sequential and are not rolled back on failure: an aborted or
// partially failed apply leaves everything already written in place.
func (ap *Applier) Apply(ctx context.Context, scope store.Scope, plan *Plan) *ApplyResult {
	timer := logging.StartTimer(logging.CategorySync, "Apply")
	defer timer.Stop()

	result := &ApplyResult{Success: true}

	// The scope snapshot feeds metadata merging and the archive cascade.
	// Failing to read it is the one fatal error an apply can hit.
	sessions, err := ap.sessions.List(ctx, scope)
	if err != nil {
		logging.Get(logging.CategorySync).Error("Apply aborted, cannot read scope %s/%s: %v",
			scope.OwnerID, scope.ProjectID, err)
		result.Success = false
		result.Error = fmt.Sprintf("failed to read persisted sessions: %v", err)
		return result
	}

	byID := make(map[string]*store.Session, len(sessions))
	activeChildren := make(map[string][]store.Session)
	for i := range sessions {
		s := &sessions[i]
		byID[s.ID] = s
		if !s.TopLevel() && s.IsActive {
			activeChildren[*s.ParentID] = append(activeChildren[*s.ParentID], *s)
		}
	}

	var deferred []Item // nested archive actions, processed after all items

	for sortIdx, item := range plan.Items {
		switch item.Action {
		case ActionCreate:
			ap.applyCreate(ctx, scope, item, sortIdx, result)
		case ActionRename, ActionKeep:
			deferred = append(deferred, ap.applyUpdate(ctx, scope, item, sortIdx, result)...)
		case ActionArchive:
			// Archive items belong in plan.ArchiveItems; tolerate them here.
			deferred = append(deferred, item)
		}
	}

	deferred = append(deferred, plan.ArchiveItems...)
	for _, item := range deferred {
		ap.applyArchive(ctx, item, byID, activeChildren, result)
	}

	logging.Sync("Applied plan for %s/%s: %d operations, %d failed",
		scope.OwnerID, scope.ProjectID, len(result.Items), len(result.Failed()))
	return result
}

// applyCreate inserts a new top-level session and its create children.
// Under a freshly created aspect only create child actions can occur:
// matching never applies to an entity that did not previously exist.
func (ap *Applier) applyCreate(ctx context.Context, scope store.Scope, item Item, sortIdx int, result *ApplyResult) {
	parentID, err := ap.sessions.Insert(ctx, scope, store.Session{
		Title:       item.Title,
		Description: item.Description,
		IsActive:    true,
		SortOrder:   sortIdx,
		Metadata:    sourceMetadata(item),
	})
	result.record(item, parentID, err)
	if err != nil {
		// Children have no parent to attach to; the next plan recreates them.
		logging.Get(logging.CategorySync).Error("Failed to create session %q, skipping %d children: %v",
			item.Title, len(item.Children), err)
		return
	}

	for childIdx, child := range item.Children {
		childID, err := ap.sessions.Insert(ctx, scope, store.Session{
			Title:       child.Title,
			ParentID:    &parentID,
			Description: child.Description,
			IsActive:    true,
			SortOrder:   childIdx,
			Metadata:    sourceMetadata(child),
		})
		result.record(child, childID, err)
	}
}

// applyUpdate handles rename and keep for a matched top-level session and
// recurses into its children. Nested archive actions are returned for
// deferred processing.
func (ap *Applier) applyUpdate(ctx context.Context, scope store.Scope, item Item, sortIdx int, result *ApplyResult) []Item {
	fields := map[string]interface{}{"sort_order": sortIdx}
	if item.Action == ActionRename {
		fields["title"] = item.Title
		fields["description"] = item.Description
	}
	err := ap.sessions.Update(ctx, item.ExistingID, fields)
	result.record(item, item.ExistingID, err)

	var deferred []Item
	for childIdx, child := range item.Children {
		switch child.Action {
		case ActionCreate:
			parentID := item.ExistingID
			childID, err := ap.sessions.Insert(ctx, scope, store.Session{
				Title:       child.Title,
				ParentID:    &parentID,
				Description: child.Description,
				IsActive:    true,
				SortOrder:   childIdx,
				Metadata:    sourceMetadata(child),
			})
			result.record(child, childID, err)
		case ActionRename:
			err := ap.sessions.Update(ctx, child.ExistingID, map[string]interface{}{
				"title":       child.Title,
				"description": child.Description,
				"sort_order":  childIdx,
			})
			result.record(child, child.ExistingID, err)
		case ActionKeep:
			err := ap.sessions.Update(ctx, child.ExistingID, map[string]interface{}{
				"sort_order": childIdx,
			})
			result.record(child, child.ExistingID, err)
		case ActionArchive:
			deferred = append(deferred, child)
		}
	}
	return deferred
}

// applyArchive marks the matched session inactive with archive metadata,
// then walks its live descendants depth-first doing the same.
func (ap *Applier) applyArchive(ctx context.Context, item Item, byID map[string]*store.Session, activeChildren map[string][]store.Session, result *ApplyResult) {
	reason := item.Comment
	if reason == "" {
		reason = defaultArchiveReason
	}

	err := ap.archiveSession(ctx, item.ExistingID, reason, byID)
	result.record(item, item.ExistingID, err)

	ap.archiveDescendants(ctx, item.ExistingID, byID, activeChildren, result)
}

func (ap *Applier) archiveDescendants(ctx context.Context, parentID string, byID map[string]*store.Session, activeChildren map[string][]store.Session, result *ApplyResult) {
	for _, child := range activeChildren[parentID] {
		err := ap.archiveSession(ctx, child.ID, "parent session archived", byID)
		result.Items = append(result.Items, ItemOutcome{
			Action:    ActionArchive,
			Title:     child.Title,
			SessionID: child.ID,
			Err:       errString(err),
		})
		ap.archiveDescendants(ctx, child.ID, byID, activeChildren, result)
	}
}

func (ap *Applier) archiveSession(ctx context.Context, id, reason string, byID map[string]*store.Session) error {
	meta := map[string]interface{}{}
	if existing := byID[id]; existing != nil {
		for k, v := range existing.Metadata {
			meta[k] = v
		}
	}
	meta[store.MetaArchived] = true
	meta[store.MetaArchivedAt] = ap.now().UTC().Format(time.RFC3339)
	meta[store.MetaArchiveReason] = reason

	return ap.sessions.Update(ctx, id, map[string]interface{}{
		"is_active": false,
		"metadata":  meta,
	})
}

// record appends the outcome of one operation, logging failures.
func (r *ApplyResult) record(item Item, sessionID string, err error) {
	if err != nil {
		logging.Get(logging.CategorySync).Error("%s %q failed: %v", item.Action, item.Title, err)
	}
	r.Items = append(r.Items, ItemOutcome{
		Action:    item.Action,
		Title:     item.Title,
		SessionID: sessionID,
		Err:       errString(err),
	})
}

func sourceMetadata(item Item) map[string]interface{} {
	if item.Source == "" {
		return nil
	}
	return map[string]interface{}{store.MetaSource: string(item.Source)}
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
