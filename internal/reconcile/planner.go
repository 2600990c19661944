package reconcile

import (
	"context"
	"fmt"

	"planforge/internal/approval"
	"planforge/internal/logging"
	"planforge/internal/store"
)

// PlanOptions configures which review statuses participate in a sync.
type PlanOptions struct {
	// SyncStatuses lists the statuses a section must have to sync.
	// Empty means the default: approved and rejected. Whether rework
	// sections sync is a deliberate caller decision, not a hidden filter.
	SyncStatuses []approval.Status
}

// DefaultPlanOptions returns the standard policy: approved sections
// reconcile, rejected sections archive, everything else waits.
func DefaultPlanOptions() PlanOptions {
	return PlanOptions{SyncStatuses: []approval.Status{approval.StatusApproved, approval.StatusRejected}}
}

// syncsAsApproved reports whether a section with this status reconciles
// like an approved one. Rework sections qualify only when opted in.
func syncsAsApproved(s approval.Status, include map[approval.Status]bool) bool {
	return (s == approval.StatusApproved || s == approval.StatusRework) && include[s]
}

func archives(s approval.Status, include map[approval.Status]bool) bool {
	return s == approval.StatusRejected && include[s]
}

func (o PlanOptions) statusSet() map[approval.Status]bool {
	statuses := o.SyncStatuses
	if len(statuses) == 0 {
		statuses = DefaultPlanOptions().SyncStatuses
	}
	set := make(map[approval.Status]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

// Planner computes sync plans against a session store.
type Planner struct {
	sessions store.SessionStore
	opts     PlanOptions
}

// NewPlanner creates a planner over the given store.
func NewPlanner(sessions store.SessionStore, opts PlanOptions) *Planner {
	return &Planner{sessions: sessions, opts: opts}
}

// BuildPlan fetches the persisted forest fresh and resolves it against the
// approval forest. Safe to call repeatedly for previews; performs no
// writes. A store read failure is surfaced, never treated as an empty
// tree.
func (p *Planner) BuildPlan(ctx context.Context, scope store.Scope, aspects []approval.Aspect) (*Plan, error) {
	timer := logging.StartTimer(logging.CategorySync, "BuildPlan")
	defer timer.Stop()

	sessions, err := p.sessions.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to read persisted sessions: %w", err)
	}

	plan := Resolve(sessions, aspects, p.opts)
	logging.Sync("Plan for %s/%s: create=%d rename=%d keep=%d archive=%d",
		scope.OwnerID, scope.ProjectID,
		plan.Stats.Create, plan.Stats.Rename, plan.Stats.Keep, plan.Stats.Archive)
	return plan, nil
}

// Resolve computes the reconciliation plan between a persisted forest and
// an approval forest. Pure: no I/O, no mutation of its inputs.
//
// Approved aspects match against unused active top-level sessions
// (rename/keep) or become creates; their tasks reconcile against the
// matched session's children with a per-parent used set. Rejected aspects
// that match become archive items; unmatched rejected sections are ignored
// since there is nothing persisted to remove.
func Resolve(sessions []store.Session, aspects []approval.Aspect, opts PlanOptions) *Plan {
	include := opts.statusSet()

	var topLevel []store.Session
	children := make(map[string][]store.Session)
	for _, s := range sessions {
		if !s.IsActive {
			continue
		}
		if s.TopLevel() {
			topLevel = append(topLevel, s)
		} else {
			children[*s.ParentID] = append(children[*s.ParentID], s)
		}
	}
	sortCandidates(topLevel)
	for _, kids := range children {
		sortCandidates(kids)
	}

	plan := &Plan{}
	usedTop := make(map[string]bool)

	// Approved aspects first: they consume matches before rejected ones
	// can archive them.
	for i := range aspects {
		a := &aspects[i]
		if !syncsAsApproved(a.Status, include) {
			continue
		}

		matched := matchSession(a.Title, topLevel, usedTop)
		if matched == nil {
			plan.Items = append(plan.Items, createAspectItem(a, include))
			continue
		}
		usedTop[matched.ID] = true

		item := Item{
			Action:        ActionKeep,
			SectionID:     a.ID,
			Title:         a.Title,
			Description:   a.Body,
			Source:        a.Source,
			ExistingID:    matched.ID,
			ExistingTitle: matched.Title,
		}
		if normalizeTitle(matched.Title) != normalizeTitle(a.Title) {
			item.Action = ActionRename
		}
		item.Children = resolveTasks(a.Tasks, children[matched.ID], include)
		plan.Items = append(plan.Items, item)
	}

	for i := range aspects {
		a := &aspects[i]
		if !archives(a.Status, include) {
			continue
		}

		matched := matchSession(a.Title, topLevel, usedTop)
		if matched == nil {
			logging.SyncDebug("Rejected aspect %q has no persisted match; nothing to archive", a.Title)
			continue
		}
		usedTop[matched.ID] = true

		plan.ArchiveItems = append(plan.ArchiveItems, Item{
			Action:        ActionArchive,
			SectionID:     a.ID,
			Title:         a.Title,
			Comment:       a.UserComment,
			Source:        a.Source,
			ExistingID:    matched.ID,
			ExistingTitle: matched.Title,
		})
	}

	plan.tally()
	return plan
}

// createAspectItem builds the create item for an unmatched approved
// aspect. Only approved tasks come along; rejected children of a session
// that never existed have nothing to archive and are dropped.
func createAspectItem(a *approval.Aspect, include map[approval.Status]bool) Item {
	item := Item{
		Action:      ActionCreate,
		SectionID:   a.ID,
		Title:       a.Title,
		Description: a.Body,
		Source:      a.Source,
	}
	for i := range a.Tasks {
		t := &a.Tasks[i]
		if !syncsAsApproved(t.Status, include) {
			continue
		}
		item.Children = append(item.Children, Item{
			Action:      ActionCreate,
			SectionID:   t.ID,
			Title:       t.Title,
			Description: t.Body,
			Source:      t.Source,
		})
	}
	return item
}

// resolveTasks reconciles the tasks of a matched aspect against the
// matched session's existing children. The used set is scoped to this
// parent, so matches never leak across aspects.
func resolveTasks(tasks []approval.Task, existing []store.Session, include map[approval.Status]bool) []Item {
	var items []Item
	used := make(map[string]bool)

	for i := range tasks {
		t := &tasks[i]
		if !syncsAsApproved(t.Status, include) {
			continue
		}

		matched := matchSession(t.Title, existing, used)
		if matched == nil {
			items = append(items, Item{
				Action:      ActionCreate,
				SectionID:   t.ID,
				Title:       t.Title,
				Description: t.Body,
				Source:      t.Source,
			})
			continue
		}
		used[matched.ID] = true

		item := Item{
			Action:        ActionKeep,
			SectionID:     t.ID,
			Title:         t.Title,
			Description:   t.Body,
			Source:        t.Source,
			ExistingID:    matched.ID,
			ExistingTitle: matched.Title,
		}
		if normalizeTitle(matched.Title) != normalizeTitle(t.Title) {
			item.Action = ActionRename
		}
		items = append(items, item)
	}

	for i := range tasks {
		t := &tasks[i]
		if !archives(t.Status, include) {
			continue
		}

		matched := matchSession(t.Title, existing, used)
		if matched == nil {
			continue
		}
		used[matched.ID] = true

		items = append(items, Item{
			Action:        ActionArchive,
			SectionID:     t.ID,
			Title:         t.Title,
			Comment:       t.UserComment,
			Source:        t.Source,
			ExistingID:    matched.ID,
			ExistingTitle: matched.Title,
		})
	}

	return items
}
