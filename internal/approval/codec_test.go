package approval

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCodecRoundTrip(t *testing.T) {
	aspects := Parse(`## Phase 1: Infra
### Storage
- Buy disks
- Configure RAID
## Operations
- Write runbook
`, SourceStrategist)

	aspects[0].Status = StatusApproved
	aspects[0].Tasks[0].Status = StatusRejected
	aspects[0].Tasks[0].UserComment = "already purchased"
	aspects[1].Title = "Ops"
	aspects[1].Body = "edited body"

	data, err := Marshal(aspects)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if diff := cmp.Diff(aspects, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalFillsMissingIDs(t *testing.T) {
	payload := `[{"title": "A", "status": "approved", "children": [{"title": "t"}]}]`

	aspects, err := Unmarshal([]byte(payload))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(aspects) != 1 || len(aspects[0].Tasks) != 1 {
		t.Fatalf("aspects = %+v", aspects)
	}
	if aspects[0].ID == "" || aspects[0].Tasks[0].ID == "" {
		t.Error("missing ids must be regenerated")
	}
}

func TestUnmarshalNormalizesUnknownStatus(t *testing.T) {
	payload := `[{"id": "a", "title": "A", "status": "shipped"}]`

	aspects, err := Unmarshal([]byte(payload))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if aspects[0].Status != StatusPending {
		t.Errorf("status = %q, want pending", aspects[0].Status)
	}
}

func TestUnmarshalFoldsOverDeepSections(t *testing.T) {
	payload := `[{
		"id": "a", "title": "A", "status": "approved",
		"children": [{
			"id": "t", "title": "task", "body": "task body", "status": "approved",
			"children": [{"id": "g", "title": "grandchild", "body": "deep detail"}]
		}]
	}]`

	aspects, err := Unmarshal([]byte(payload))
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	task := aspects[0].Tasks[0]
	if !strings.Contains(task.Body, "grandchild") {
		t.Errorf("over-deep section lost: %q", task.Body)
	}
	if !strings.Contains(task.Body, "deep detail") {
		t.Errorf("over-deep body lost: %q", task.Body)
	}
}

func TestUnmarshalRejectsMalformedPayload(t *testing.T) {
	if _, err := Unmarshal([]byte(`{"not": "an array"}`)); err == nil {
		t.Error("expected error for non-array payload")
	}
}
