package reconcile

import (
	"sort"
	"strings"

	"planforge/internal/store"
)

// normalizeTitle lower-cases a title, trims it, and collapses internal
// whitespace runs to single spaces.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// sortCandidates orders sessions by sort order then id so matching is
// independent of enumeration order.
func sortCandidates(sessions []store.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].SortOrder != sessions[j].SortOrder {
			return sessions[i].SortOrder < sessions[j].SortOrder
		}
		return sessions[i].ID < sessions[j].ID
	})
}

// matchSession finds the persisted session a title denotes among not-yet-
// consumed candidates: exact normalized equality first, then substring
// containment in either direction. Containment ties break on the longest
// contained title, then the candidate order (sort order, id), so results
// are deterministic across re-orderings of the input.
//
// Returns nil when nothing qualifies. Candidates must be pre-sorted with
// sortCandidates.
func matchSession(title string, candidates []store.Session, used map[string]bool) *store.Session {
	norm := normalizeTitle(title)
	if norm == "" {
		return nil
	}

	for i := range candidates {
		c := &candidates[i]
		if used[c.ID] {
			continue
		}
		if normalizeTitle(c.Title) == norm {
			return c
		}
	}

	var (
		best    *store.Session
		bestLen = -1
	)
	for i := range candidates {
		c := &candidates[i]
		if used[c.ID] {
			continue
		}
		cNorm := normalizeTitle(c.Title)
		if cNorm == "" {
			continue
		}
		if !strings.Contains(norm, cNorm) && !strings.Contains(cNorm, norm) {
			continue
		}
		// The contained string is the shorter of the two; a longer overlap
		// is a stronger match.
		overlap := len(cNorm)
		if len(norm) < overlap {
			overlap = len(norm)
		}
		if overlap > bestLen {
			best = c
			bestLen = overlap
		}
	}
	return best
}
