package reconcile

import (
	"testing"

	"planforge/internal/store"
)

func sessionsOf(titles ...string) []store.Session {
	out := make([]store.Session, 0, len(titles))
	for i, title := range titles {
		out = append(out, store.Session{ID: string(rune('a' + i)), Title: title, SortOrder: i})
	}
	return out
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Phase 1: Storage", "phase 1: storage"},
		{"  Lots   of\tSpace  ", "lots of space"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := normalizeTitle(tt.in); got != tt.want {
			t.Errorf("normalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchSessionExactWinsOverContainment(t *testing.T) {
	candidates := sessionsOf("Storage and Backup", "Storage")
	sortCandidates(candidates)

	got := matchSession("storage", candidates, map[string]bool{})
	if got == nil || got.Title != "Storage" {
		t.Fatalf("got %+v, want exact match Storage", got)
	}
}

func TestMatchSessionContainmentBothDirections(t *testing.T) {
	candidates := sessionsOf("Storage")
	sortCandidates(candidates)

	// Section title contains the session title.
	if got := matchSession("Phase 1: Storage", candidates, map[string]bool{}); got == nil {
		t.Error("section-contains-session match failed")
	}
	// Session title contains the section title.
	candidates = sessionsOf("Phase 1: Storage")
	sortCandidates(candidates)
	if got := matchSession("Storage", candidates, map[string]bool{}); got == nil {
		t.Error("session-contains-section match failed")
	}
}

func TestMatchSessionPrefersLongestOverlap(t *testing.T) {
	candidates := sessionsOf("API", "API Gateway rollout")
	sortCandidates(candidates)

	got := matchSession("Phase 2: API Gateway rollout", candidates, map[string]bool{})
	if got == nil || got.Title != "API Gateway rollout" {
		t.Fatalf("got %+v, want the longer containment", got)
	}
}

func TestMatchSessionSkipsUsed(t *testing.T) {
	candidates := sessionsOf("Storage", "Storage v2")
	sortCandidates(candidates)

	used := map[string]bool{candidates[0].ID: true}
	got := matchSession("Storage", candidates, used)
	if got == nil || got.Title != "Storage v2" {
		t.Fatalf("got %+v, want the unused candidate", got)
	}
}

func TestMatchSessionNoMatch(t *testing.T) {
	candidates := sessionsOf("Networking")
	sortCandidates(candidates)

	if got := matchSession("Observability", candidates, map[string]bool{}); got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if got := matchSession("", candidates, map[string]bool{}); got != nil {
		t.Errorf("empty title matched %+v", got)
	}
}

func TestMatchSessionDeterministicTieBreak(t *testing.T) {
	// Two candidates with identical titles; the lower sort order must win
	// regardless of input order.
	a := store.Session{ID: "x", Title: "Storage", SortOrder: 1}
	b := store.Session{ID: "y", Title: "Storage", SortOrder: 0}

	for _, candidates := range [][]store.Session{{a, b}, {b, a}} {
		sortCandidates(candidates)
		got := matchSession("Phase 1: Storage", candidates, map[string]bool{})
		if got == nil || got.ID != "y" {
			t.Fatalf("got %+v, want candidate y", got)
		}
	}
}
