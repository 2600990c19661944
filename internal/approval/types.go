// Package approval models the human-approvable plan tree produced from
// AI-generated strategy markdown.
//
// A parsed document becomes an ordered forest of Aspects (merged
// "Phase + sub-topic" groupings), each holding an ordered list of Tasks.
// The two-level shape is structural: a Task has no children field, so no
// tree deeper than two levels can be represented.
//
// Aspects and Tasks are ephemeral: created by the parser, mutated during
// human review (status, title, body, comment), and discarded once a sync
// plan has been applied. A review session can be paused by persisting the
// forest as JSON (see codec.go) and resumed later.
package approval

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Status represents the review state of a section.
type Status string

const (
	StatusPending  Status = "pending"  // Not yet reviewed
	StatusApproved Status = "approved" // Accepted, will sync
	StatusRejected Status = "rejected" // Refused, archives any persisted match
	StatusRework   Status = "rework"   // Sent back to the expert with a comment
)

// Valid reports whether s is one of the known review states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusRework:
		return true
	}
	return false
}

// Source tags which expert pipeline produced a section.
type Source string

const (
	SourceVisionary  Source = "visionary"
	SourceStrategist Source = "strategist"
	SourcePatent     Source = "patent"
)

// Task is an actionable item under an Aspect (depth 1).
type Task struct {
	ID            string
	Title         string
	OriginalTitle string
	Body          string
	OriginalBody  string
	Status        Status
	UserComment   string
	Source        Source
}

// Aspect is a top-level section of the plan (depth 0), grouping the tasks
// of one merged "Phase N: topic" heading.
type Aspect struct {
	ID            string
	Title         string
	OriginalTitle string
	Body          string
	OriginalBody  string
	Status        Status
	UserComment   string
	Source        Source
	Tasks         []Task
}

// Edited reports whether the task body was changed during review.
func (t *Task) Edited() bool { return t.Body != t.OriginalBody }

// Renamed reports whether the task title was changed during review.
func (t *Task) Renamed() bool { return t.Title != t.OriginalTitle }

// Edited reports whether the aspect body was changed during review.
func (a *Aspect) Edited() bool { return a.Body != a.OriginalBody }

// Renamed reports whether the aspect title was changed during review.
func (a *Aspect) Renamed() bool { return a.Title != a.OriginalTitle }

// idGenerator issues parse-session-unique section ids. Each generator
// carries its own random prefix, so concurrent parses never collide.
type idGenerator struct {
	prefix  string
	counter atomic.Int64
}

func newIDGenerator() *idGenerator {
	return &idGenerator{prefix: uuid.New().String()[:8]}
}

func (g *idGenerator) next() string {
	return fmt.Sprintf("sec_%s_%d", g.prefix, g.counter.Add(1))
}

// NewID returns a fresh globally-unique section id. Used when deserialized
// sections arrive without one.
func NewID() string {
	return fmt.Sprintf("sec_%s", uuid.New().String())
}
