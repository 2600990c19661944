// Package reconcile computes and applies sync plans: the minimal set of
// create/rename/keep/archive actions that brings the persisted session
// hierarchy in line with a reviewed approval forest.
//
// Plan computation (Planner, Resolve) is pure and safely repeatable for
// previews; only the Applier writes to the store.
package reconcile

import "planforge/internal/approval"

// Action is one reconciliation verb.
type Action string

const (
	ActionCreate  Action = "create"  // No persisted match: insert a new session
	ActionRename  Action = "rename"  // Matched, but the title changed
	ActionKeep    Action = "keep"    // Matched with an equivalent title
	ActionArchive Action = "archive" // Rejected section with a persisted match
)

// Item is one planned action. Top-level items carry their reconciled task
// actions in Children; archive items never have children (the applier
// cascades over live descendants itself).
type Item struct {
	Action        Action          `json:"action"`
	SectionID     string          `json:"sectionId"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Comment       string          `json:"comment,omitempty"`
	Source        approval.Source `json:"source,omitempty"`
	ExistingID    string          `json:"existingSessionId,omitempty"`
	ExistingTitle string          `json:"existingTitle,omitempty"`
	Children      []Item          `json:"children,omitempty"`
}

// PlanStats aggregates action counts across a plan.
type PlanStats struct {
	Create  int `json:"create"`
	Rename  int `json:"rename"`
	Archive int `json:"archive"`
	Keep    int `json:"keep"`
}

// Plan is the computed reconciliation between an approval forest and the
// persisted tree of one scope.
type Plan struct {
	Items        []Item    `json:"items"`
	ArchiveItems []Item    `json:"archiveItems"`
	Stats        PlanStats `json:"stats"`
}

// Empty reports whether the plan contains no actions at all.
func (p *Plan) Empty() bool {
	return len(p.Items) == 0 && len(p.ArchiveItems) == 0
}

// AllKeep reports whether the plan would change nothing.
func (p *Plan) AllKeep() bool {
	return p.Stats.Create == 0 && p.Stats.Rename == 0 && p.Stats.Archive == 0
}

func (p *Plan) tally() {
	p.Stats = PlanStats{}
	for i := range p.Items {
		p.Stats.add(&p.Items[i])
	}
	for i := range p.ArchiveItems {
		p.Stats.add(&p.ArchiveItems[i])
	}
}

func (s *PlanStats) add(item *Item) {
	switch item.Action {
	case ActionCreate:
		s.Create++
	case ActionRename:
		s.Rename++
	case ActionKeep:
		s.Keep++
	case ActionArchive:
		s.Archive++
	}
	for i := range item.Children {
		s.add(&item.Children[i])
	}
}
