package audit

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatTimelineHeaderAndSummary(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{SubjectID: "v-aaa"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	if !strings.Contains(out, "Subject: v-aaa | 2026-01-15 14:00:00") {
		t.Errorf("expected header with subject and start, got:\n%s", out)
	}
	if !strings.Contains(out, "2 score (max critical)") {
		t.Errorf("expected score summary, got:\n%s", out)
	}
	if !strings.Contains(out, "2 bypass (1 FULL_SD, 1 QUICK_FIX)") {
		t.Errorf("expected bypass summary, got:\n%s", out)
	}
	if !strings.Contains(out, "| 1 blocked | 1 degraded") {
		t.Errorf("expected flag counts, got:\n%s", out)
	}
}

func TestFormatTimelineEntryColumns(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{SubjectID: "v-aaa"})
	if err != nil {
		t.Fatal(err)
	}

	out := FormatTimeline(result)

	for _, want := range []string{"SCORE", "BYPASS", "SUGGEST", "[blocked]", "[degraded]", "AP-FIN-001,AP-MKT-001", "14:00:10"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in timeline:\n%s", want, out)
		}
	}
}

func TestFormatTimelineEmpty(t *testing.T) {
	out := FormatTimeline(&ReplayResult{SubjectID: "ghost"})
	if out != "Subject: ghost | No entries found.\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestFormatJSON(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{SubjectID: "v-aaa"})
	if err != nil {
		t.Fatal(err)
	}

	out, err := FormatJSON(result)
	if err != nil {
		t.Fatal(err)
	}
	var decoded ReplayResult
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if decoded.Summary.Total != 5 {
		t.Errorf("expected total 5, got %d", decoded.Summary.Total)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("a-very-long-outcome", 10); got != "a-very-..." {
		t.Errorf("expected truncated, got %q", got)
	}
}
