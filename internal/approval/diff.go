package approval

// Stats summarizes the review state of an approval forest.
// Edited and Renamed are counted independently of status.
type Stats struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Rework   int `json:"rework"`
	Total    int `json:"total"`
	Edited   int `json:"edited"`
	Renamed  int `json:"renamed"`
}

// Summarize walks an approval forest and counts statuses, edits, and
// renames across aspects and tasks. Pure; no failure modes.
func Summarize(aspects []Aspect) Stats {
	var s Stats
	for i := range aspects {
		a := &aspects[i]
		s.count(a.Status, a.Edited(), a.Renamed())
		for j := range a.Tasks {
			t := &a.Tasks[j]
			s.count(t.Status, t.Edited(), t.Renamed())
		}
	}
	return s
}

func (s *Stats) count(status Status, edited, renamed bool) {
	s.Total++
	switch status {
	case StatusApproved:
		s.Approved++
	case StatusRejected:
		s.Rejected++
	case StatusRework:
		s.Rework++
	}
	if edited {
		s.Edited++
	}
	if renamed {
		s.Renamed++
	}
}

// Reviewed reports whether every section has left the pending state.
func (s Stats) Reviewed() bool {
	return s.Approved+s.Rejected+s.Rework == s.Total
}
