package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leoprotocol/leoscore/internal/model"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	return l, path
}

func testEntry(outcome string) Entry {
	return Entry{
		Timestamp:   time.Now().UTC().Format(TimestampFormat),
		Operation:   OpScore,
		Subject:     Subject{Kind: "venture", ID: "venture-1"},
		Outcome:     outcome,
		Confidence:  80,
		Patterns:    []string{"AP-FIN-001"},
		PolicyHash:  "sha256:abc123",
		CatalogHash: "sha256:def456",
	}
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)

	for i := 0; i < 5; i++ {
		if err := l.Record(testEntry("high")); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := newTestLog(t)
	for i := 0; i < 3; i++ {
		if err := l.Record(testEntry("high")); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	l.Close()

	// Downgrade the level recorded on line 2
	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"high"`, `"low"`, 1)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected error at line 3, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := newTestLog(t)
	for i := 0; i < 3; i++ {
		l.Record(testEntry("high"))
	}
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	os.WriteFile(path, []byte(lines[0]+"\n"+lines[2]+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with deleted entry to be invalid")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected error at line 2, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsForgedFirstEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forged.jsonl")
	e := testEntry("none")
	e.PrevHash = "sha256:forged"
	line, _ := json.Marshal(e)
	os.WriteFile(path, append(line, '\n'), 0644)

	result := Verify(path)
	if result.Valid || result.ErrorLine != 1 {
		t.Fatalf("expected invalid first line, got %+v", result)
	}
}

func TestEmptyLogPassesVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	os.WriteFile(path, []byte{}, 0644)

	result := Verify(path)
	if !result.Valid || result.Lines != 0 {
		t.Fatalf("expected empty log to be valid with 0 lines, got %+v", result)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	result := Verify(filepath.Join(t.TempDir(), "missing.jsonl"))
	if result.Valid || result.Error == "" {
		t.Fatalf("expected open error, got %+v", result)
	}
}

func TestConcurrentWritesSerializeCorrectly(t *testing.T) {
	l, path := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(testEntry("medium"))
		}()
	}
	wg.Wait()
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after concurrent writes, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 100 {
		t.Fatalf("expected 100 lines, got %d", result.Lines)
	}
}

func TestOpenExistingLogContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reopen.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		l1.Record(testEntry("high"))
	}
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if l2.Path() != path {
		t.Errorf("expected path %s, got %s", path, l2.Path())
	}
	for i := 0; i < 2; i++ {
		l2.Record(testEntry("low"))
	}
	l2.Close()

	result := Verify(path)
	if !result.Valid || result.Lines != 5 {
		t.Fatalf("expected valid 5-line chain after reopen, got %+v", result)
	}
}

func TestRecordStampsMissingTimestamp(t *testing.T) {
	l, path := newTestLog(t)
	e := testEntry("low")
	e.Timestamp = ""
	l.Record(e)
	l.Close()

	data, _ := os.ReadFile(path)
	var got Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &got); err != nil {
		t.Fatal(err)
	}
	if _, err := time.Parse(TimestampFormat, got.Timestamp); err != nil {
		t.Errorf("expected stamped timestamp, got %q", got.Timestamp)
	}
	if got.PrevHash != GenesisHash {
		t.Errorf("expected genesis prev_hash, got %s", got.PrevHash)
	}
}

func TestHashLineIsDeterministic(t *testing.T) {
	line := []byte(`{"ts":"2026-01-15T10:30:00.000Z","operation":"score","subject":{"kind":"venture","id":"v-1"},"outcome":"high","confidence":80,"policy_hash":"sha256:abc","catalog_hash":"sha256:def","prev_hash":"sha256:000"}`)
	h1 := HashLine(line)
	if h1 != HashLine(line) {
		t.Fatal("expected same hash for same input")
	}
	if !strings.HasPrefix(h1, "sha256:") || len(h1) != 7+64 {
		t.Fatalf("unexpected hash format %s", h1)
	}
}

func TestScoreEntry(t *testing.T) {
	at := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	e := ScoreEntry(model.Assessment{
		SubjectID: "venture-9",
		RiskLevel: model.RiskHigh,
		Matches: []model.Match{
			{PatternID: "AP-TECH-001", Confidence: 50},
			{PatternID: "AP-RES-001", Confidence: 100},
		},
		AssessedAt: at,
	})

	if e.Operation != OpScore || e.Subject.ID != "venture-9" || e.Outcome != "high" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Confidence != 100 {
		t.Errorf("expected max confidence 100, got %d", e.Confidence)
	}
	if e.Timestamp != "2026-02-01T09:30:00.000Z" {
		t.Errorf("expected assessment timestamp, got %s", e.Timestamp)
	}
	if len(e.Patterns) != 2 {
		t.Errorf("expected 2 patterns, got %v", e.Patterns)
	}
}

func TestSuggestAndBypassEntries(t *testing.T) {
	s := SuggestEntry(model.PostMortem{ID: "pm-3"}, nil)
	if s.Outcome != "none" || s.Subject.Kind != "postmortem" {
		t.Errorf("unexpected empty suggest entry %+v", s)
	}
	s = SuggestEntry(model.PostMortem{ID: "pm-3"}, []model.Match{{PatternID: "AP-TECH-002", Confidence: 58}})
	if s.Outcome != "AP-TECH-002" || s.Confidence != 58 {
		t.Errorf("unexpected suggest entry %+v", s)
	}

	b := BypassEntry(model.Issue{ID: "ISSUE-1"}, model.BypassResult{
		Pathway: model.PathwayFullSD, Confidence: 100, Reason: "blocked: schema", Blocked: true,
	})
	if b.Outcome != "FULL_SD" || !b.Blocked || b.Reason != "blocked: schema" {
		t.Errorf("unexpected bypass entry %+v", b)
	}
}
