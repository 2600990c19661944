package approval

import (
	"strings"
	"testing"
)

func TestParseEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   \n\n  ", "# Title only"} {
		if got := Parse(input, SourceStrategist); len(got) != 0 {
			t.Errorf("Parse(%q) = %d aspects, want 0", input, len(got))
		}
	}
}

func TestParseBasicAspectWithTasks(t *testing.T) {
	md := `## Infrastructure
- Buy disks
- Configure RAID
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	a := aspects[0]
	if a.Title != "Infrastructure" {
		t.Errorf("title = %q, want Infrastructure", a.Title)
	}
	if len(a.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(a.Tasks))
	}
	if a.Tasks[0].Title != "Buy disks" || a.Tasks[1].Title != "Configure RAID" {
		t.Errorf("task titles = %q, %q", a.Tasks[0].Title, a.Tasks[1].Title)
	}
	if a.Status != StatusPending || a.Tasks[0].Status != StatusPending {
		t.Error("fresh sections must start pending")
	}
	if a.Source != SourceStrategist || a.Tasks[0].Source != SourceStrategist {
		t.Error("source tag not propagated")
	}
}

func TestParsePhaseHeadingMergesFirstSubheading(t *testing.T) {
	md := `## Phase 1: Infra
### Storage
- Buy disks
- Configure RAID
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Title != "Phase 1: Storage" {
		t.Errorf("title = %q, want %q", aspects[0].Title, "Phase 1: Storage")
	}
	if aspects[0].OriginalTitle != "Phase 1: Storage" {
		t.Errorf("merge must rewrite OriginalTitle too, got %q", aspects[0].OriginalTitle)
	}
	if len(aspects[0].Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(aspects[0].Tasks))
	}
}

func TestParsePhaseMergeOnlyAppliesOnce(t *testing.T) {
	md := `## Phase 2: Core
### Engine
- t1
### Scheduler
- t2
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 2 {
		t.Fatalf("got %d aspects, want 2", len(aspects))
	}
	if aspects[0].Title != "Phase 2: Engine" {
		t.Errorf("first = %q, want %q", aspects[0].Title, "Phase 2: Engine")
	}
	if aspects[1].Title != "Phase 2: Scheduler" {
		t.Errorf("second = %q, want %q", aspects[1].Title, "Phase 2: Scheduler")
	}
}

func TestParseBarePhaseGrouper(t *testing.T) {
	md := `## Phase 3
### Alpha
- t1
### Beta
- t2
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 2 {
		t.Fatalf("got %d aspects, want 2", len(aspects))
	}
	if aspects[0].Title != "Phase 3: Alpha" || aspects[1].Title != "Phase 3: Beta" {
		t.Errorf("titles = %q, %q", aspects[0].Title, aspects[1].Title)
	}
}

func TestParseCyrillicPhaseLabels(t *testing.T) {
	md := `## Этап 2: Ядро
- задача
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Title != "Этап 2: Ядро" {
		t.Errorf("title = %q", aspects[0].Title)
	}
}

func TestParseHeading4SynthesizesPlaceholder(t *testing.T) {
	md := `#### Setup tooling
details
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Title != "General" {
		t.Errorf("title = %q, want General", aspects[0].Title)
	}
	if len(aspects[0].Tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(aspects[0].Tasks))
	}
	task := aspects[0].Tasks[0]
	if task.Title != "Setup tooling" {
		t.Errorf("task title = %q", task.Title)
	}
	if !strings.Contains(task.Body, "details") {
		t.Errorf("task body missing detail lines: %q", task.Body)
	}
}

func TestParseIndentedSubBullets(t *testing.T) {
	md := "## Infra\n- Main task\n    - sub one\n\t- sub two\n- Next task\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	tasks := aspects[0].Tasks
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2 (sub-bullets must not become tasks)", len(tasks))
	}
	if tasks[0].Title != "Main task" {
		t.Errorf("title = %q", tasks[0].Title)
	}
	if !strings.Contains(tasks[0].Body, "sub one") || !strings.Contains(tasks[0].Body, "sub two") {
		t.Errorf("sub-bullets missing from body: %q", tasks[0].Body)
	}
}

func TestParseBoldMarkersStrippedFromTitle(t *testing.T) {
	md := "## A\n- **Deploy** the service\n"
	aspects := Parse(md, SourceStrategist)
	if got := aspects[0].Tasks[0].Title; got != "Deploy the service" {
		t.Errorf("title = %q, want %q", got, "Deploy the service")
	}
	if !strings.Contains(aspects[0].Tasks[0].Body, "**Deploy**") {
		t.Error("body must keep the raw markdown")
	}
}

func TestParseNumberedLists(t *testing.T) {
	md := "## A\n1. First\n2) Second\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects[0].Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(aspects[0].Tasks))
	}
	if aspects[0].Tasks[0].Title != "First" || aspects[0].Tasks[1].Title != "Second" {
		t.Errorf("titles = %q, %q", aspects[0].Tasks[0].Title, aspects[0].Tasks[1].Title)
	}
}

func TestParseDropsEmptyAspects(t *testing.T) {
	md := `## Empty One
## Empty Two
## Real
- task
`
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Title != "Real" {
		t.Errorf("title = %q", aspects[0].Title)
	}
}

func TestParseAspectBodyWithoutTasks(t *testing.T) {
	md := "## Notes\nSome context line.\nAnother line.\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Body != "Some context line.\nAnother line." {
		t.Errorf("body = %q", aspects[0].Body)
	}
	if aspects[0].OriginalBody != aspects[0].Body {
		t.Error("OriginalBody must match Body after parse")
	}
}

func TestParseFencedCodeBlocksPassThrough(t *testing.T) {
	md := "## A\nintro\n```\n## not a heading\n- not a task\n```\n- real task\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if len(aspects[0].Tasks) != 1 || aspects[0].Tasks[0].Title != "real task" {
		t.Fatalf("tasks = %+v", aspects[0].Tasks)
	}
	if !strings.Contains(aspects[0].Body, "## not a heading") {
		t.Errorf("fence content missing from body: %q", aspects[0].Body)
	}
}

func TestParseFrontMatterSourceOverride(t *testing.T) {
	md := "---\nsource: visionary\n---\n## A\n- t\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Source != SourceVisionary {
		t.Errorf("source = %q, want visionary", aspects[0].Source)
	}
	if aspects[0].Tasks[0].Source != SourceVisionary {
		t.Errorf("task source = %q, want visionary", aspects[0].Tasks[0].Source)
	}
}

func TestParseCRLFDocument(t *testing.T) {
	md := "---\r\nsource: visionary\r\n---\r\n## Phase 1: Infra\r\n### Storage\r\n- Buy disks\r\n- Configure RAID\r\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Source != SourceVisionary {
		t.Errorf("front matter source lost on CRLF input, got %q", aspects[0].Source)
	}
	if aspects[0].Title != "Phase 1: Storage" {
		t.Errorf("title = %q, want %q", aspects[0].Title, "Phase 1: Storage")
	}
	if len(aspects[0].Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(aspects[0].Tasks))
	}
	for _, task := range aspects[0].Tasks {
		if strings.ContainsRune(task.Title, '\r') || strings.ContainsRune(task.Body, '\r') {
			t.Errorf("carriage return leaked into task %q", task.Title)
		}
	}
}

func TestParseMalformedFrontMatterBecomesBody(t *testing.T) {
	md := "---\n: not yaml [\n---\n## A\n- t\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 {
		t.Fatalf("got %d aspects, want 1", len(aspects))
	}
	if aspects[0].Source != SourceStrategist {
		t.Errorf("malformed front matter must not change source, got %q", aspects[0].Source)
	}
}

func TestParseAssignsUniqueIDs(t *testing.T) {
	md := "## A\n- t1\n- t2\n## B\n- t3\n"
	aspects := Parse(md, SourceStrategist)

	seen := make(map[string]bool)
	check := func(id string) {
		if id == "" {
			t.Error("empty section id")
		}
		if !strings.HasPrefix(id, "sec_") {
			t.Errorf("id %q missing sec_ prefix", id)
		}
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
	}
	for i := range aspects {
		check(aspects[i].ID)
		for j := range aspects[i].Tasks {
			check(aspects[i].Tasks[j].ID)
		}
	}
}

func TestParseHeading1Ignored(t *testing.T) {
	md := "# Grand Plan\n## A\n- t\n"
	aspects := Parse(md, SourceStrategist)
	if len(aspects) != 1 || aspects[0].Title != "A" {
		t.Fatalf("aspects = %+v", aspects)
	}
}
