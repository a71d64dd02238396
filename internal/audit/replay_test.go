package audit

import (
	"path/filepath"
	"testing"
	"time"
)

var replayBase = time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)

// writeTestLog creates a temp audit log with known entries for testing.
func writeTestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()

	at := func(s int) string { return replayBase.Add(time.Duration(s) * time.Second).Format(TimestampFormat) }
	venture := Subject{Kind: "venture", ID: "v-aaa"}

	entries := []Entry{
		{Timestamp: at(0), Operation: OpScore, Subject: venture, Outcome: "medium", Confidence: 67, Patterns: []string{"AP-TECH-001"}},
		{Timestamp: at(2), Operation: OpScore, Subject: venture, Outcome: "critical", Confidence: 100, Patterns: []string{"AP-FIN-001", "AP-MKT-001"}},
		{Timestamp: at(4), Operation: OpScore, Subject: Subject{Kind: "venture", ID: "v-bbb"}, Outcome: "none"},
		{Timestamp: at(6), Operation: OpBypass, Subject: Subject{Kind: "issue", ID: "v-aaa"}, Outcome: "FULL_SD", Confidence: 100, Reason: "blocked: schema changes require full process", Blocked: true},
		{Timestamp: at(8), Operation: OpBypass, Subject: Subject{Kind: "issue", ID: "v-aaa"}, Outcome: "QUICK_FIX", Confidence: 82, Reason: "quick fix: 30 LOC across 1 file(s)", Degraded: true},
		{Timestamp: at(10), Operation: OpSuggest, Subject: Subject{Kind: "postmortem", ID: "v-aaa"}, Outcome: "AP-TECH-002", Confidence: 58, Patterns: []string{"AP-TECH-002"}},
	}

	for _, e := range entries {
		if err := log.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestReplayFiltersBySubject(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, ReplayFilter{SubjectID: "v-aaa"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 5 {
		t.Fatalf("expected 5 entries for v-aaa, got %d", len(result.Entries))
	}
	for _, e := range result.Entries {
		if e.Subject.ID != "v-aaa" {
			t.Errorf("unexpected subject %s", e.Subject.ID)
		}
	}
}

func TestReplayFiltersByOperation(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, ReplayFilter{SubjectID: "v-aaa", Operation: OpBypass})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 bypass entries, got %d", len(result.Entries))
	}
}

func TestReplayTimeRange(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, ReplayFilter{
		SubjectID: "v-aaa",
		From:      replayBase.Add(2 * time.Second),
		To:        replayBase.Add(6 * time.Second),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries in range, got %d", len(result.Entries))
	}
}

func TestReplaySummary(t *testing.T) {
	path := writeTestLog(t)

	result, err := Replay(path, ReplayFilter{SubjectID: "v-aaa"})
	if err != nil {
		t.Fatal(err)
	}
	s := result.Summary
	if s.Total != 5 {
		t.Errorf("expected total 5, got %d", s.Total)
	}
	if s.MaxLevel != "critical" {
		t.Errorf("expected max level critical, got %s", s.MaxLevel)
	}
	if s.Levels["medium"] != 1 || s.Levels["critical"] != 1 {
		t.Errorf("unexpected level counts %v", s.Levels)
	}
	if s.Pathways["FULL_SD"] != 1 || s.Pathways["QUICK_FIX"] != 1 {
		t.Errorf("unexpected pathway counts %v", s.Pathways)
	}
	if s.Suggestions != 1 || s.BlockedCount != 1 || s.DegradedCount != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.FirstTimestamp != "2026-01-15T14:00:00.000Z" || s.LastTimestamp != "2026-01-15T14:00:10.000Z" {
		t.Errorf("unexpected timestamps %s..%s", s.FirstTimestamp, s.LastTimestamp)
	}
}

func TestReplayUnknownSubject(t *testing.T) {
	path := writeTestLog(t)
	result, err := Replay(path, ReplayFilter{SubjectID: "nope"})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 0 || result.Summary.Total != 0 {
		t.Errorf("expected no entries, got %d", len(result.Entries))
	}
}

func TestReplayMissingFile(t *testing.T) {
	if _, err := Replay(filepath.Join(t.TempDir(), "missing.jsonl"), ReplayFilter{SubjectID: "x"}); err == nil {
		t.Fatal("expected error for missing log")
	}
}
