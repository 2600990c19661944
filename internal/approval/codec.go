package approval

import (
	"encoding/json"
	"fmt"
	"strings"

	"planforge/internal/logging"
)

// sectionJSON is the wire shape of a section, shared by aspects (depth 0)
// and tasks (depth 1). It mirrors the payload the review UI exchanges, so a
// paused review session round-trips losslessly.
type sectionJSON struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	OriginalTitle string        `json:"originalTitle"`
	Body          string        `json:"body"`
	OriginalBody  string        `json:"originalBody"`
	Status        Status        `json:"status"`
	UserComment   string        `json:"userComment"`
	Depth         int           `json:"depth"`
	Source        Source        `json:"source"`
	Children      []sectionJSON `json:"children"`
}

// Marshal encodes an approval forest as the JSON array used to persist a
// paused review session.
func Marshal(aspects []Aspect) ([]byte, error) {
	out := make([]sectionJSON, 0, len(aspects))
	for i := range aspects {
		a := &aspects[i]
		sec := sectionJSON{
			ID:            a.ID,
			Title:         a.Title,
			OriginalTitle: a.OriginalTitle,
			Body:          a.Body,
			OriginalBody:  a.OriginalBody,
			Status:        a.Status,
			UserComment:   a.UserComment,
			Depth:         0,
			Source:        a.Source,
			Children:      make([]sectionJSON, 0, len(a.Tasks)),
		}
		for j := range a.Tasks {
			t := &a.Tasks[j]
			sec.Children = append(sec.Children, sectionJSON{
				ID:            t.ID,
				Title:         t.Title,
				OriginalTitle: t.OriginalTitle,
				Body:          t.Body,
				OriginalBody:  t.OriginalBody,
				Status:        t.Status,
				UserComment:   t.UserComment,
				Depth:         1,
				Source:        t.Source,
				Children:      []sectionJSON{},
			})
		}
		out = append(out, sec)
	}
	return json.Marshal(out)
}

// Unmarshal decodes a persisted review session back into an approval
// forest. Sections missing an id receive a fresh one. Grandchildren in
// foreign input (deeper than the two-level invariant allows) are folded
// into their parent task's body rather than dropped.
func Unmarshal(data []byte) ([]Aspect, error) {
	var raw []sectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse approval session: %w", err)
	}

	aspects := make([]Aspect, 0, len(raw))
	for i := range raw {
		sec := &raw[i]
		a := Aspect{
			ID:            orFreshID(sec.ID),
			Title:         sec.Title,
			OriginalTitle: sec.OriginalTitle,
			Body:          sec.Body,
			OriginalBody:  sec.OriginalBody,
			Status:        normalizeStatus(sec.Status),
			UserComment:   sec.UserComment,
			Source:        sec.Source,
		}
		for j := range sec.Children {
			child := &sec.Children[j]
			t := Task{
				ID:            orFreshID(child.ID),
				Title:         child.Title,
				OriginalTitle: child.OriginalTitle,
				Body:          child.Body,
				OriginalBody:  child.OriginalBody,
				Status:        normalizeStatus(child.Status),
				UserComment:   child.UserComment,
				Source:        child.Source,
			}
			if len(child.Children) > 0 {
				logging.ApprovalDebug("Flattening %d over-deep sections under task %q", len(child.Children), t.Title)
				t.Body = foldDescendants(t.Body, child.Children)
				t.OriginalBody = foldDescendants(t.OriginalBody, child.Children)
			}
			a.Tasks = append(a.Tasks, t)
		}
		aspects = append(aspects, a)
	}
	return aspects, nil
}

func orFreshID(id string) string {
	if id != "" {
		return id
	}
	return NewID()
}

func normalizeStatus(s Status) Status {
	if s.Valid() {
		return s
	}
	return StatusPending
}

// foldDescendants appends over-deep section titles/bodies as bullet lines.
func foldDescendants(body string, children []sectionJSON) string {
	var sb strings.Builder
	sb.WriteString(body)
	for i := range children {
		c := &children[i]
		sb.WriteString("\n  - ")
		sb.WriteString(c.Title)
		if c.Body != "" && c.Body != c.Title {
			sb.WriteString(": ")
			sb.WriteString(c.Body)
		}
		if len(c.Children) > 0 {
			return foldDescendants(sb.String(), c.Children)
		}
	}
	return sb.String()
}
