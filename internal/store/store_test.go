package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/model"
)

func openTemp(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "leoscore.db"), opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestPatternsRoundTripInOrder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	defaults := catalog.DefaultPatterns()
	if err := s.ImportPatterns(ctx, defaults); err != nil {
		t.Fatalf("ImportPatterns: %v", err)
	}

	got, err := s.LoadPatterns(ctx)
	if err != nil {
		t.Fatalf("LoadPatterns: %v", err)
	}
	if len(got) != len(defaults) {
		t.Fatalf("expected %d patterns, got %d", len(defaults), len(got))
	}
	for i := range defaults {
		if got[i].ID != defaults[i].ID {
			t.Errorf("position %d: expected %s, got %s", i, defaults[i].ID, got[i].ID)
		}
	}
	if len(got[0].PreventionMeasures) != len(defaults[0].PreventionMeasures) {
		t.Error("expected prevention measures to survive storage")
	}
}

func TestUpsertKeepsPosition(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	defaults := catalog.DefaultPatterns()
	if err := s.ImportPatterns(ctx, defaults[:3]); err != nil {
		t.Fatal(err)
	}

	first := defaults[0]
	first.Name = "Renamed"
	if err := s.UpsertPattern(ctx, first); err != nil {
		t.Fatalf("UpsertPattern: %v", err)
	}

	got, err := s.LoadPatterns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != first.ID || got[0].Name != "Renamed" {
		t.Errorf("expected renamed pattern to stay first, got %+v", got[0])
	}
}

func TestGetPatternNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.GetPattern(context.Background(), "AP-NOPE")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetPatternStatus(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	p := catalog.DefaultPatterns()[0]
	if err := s.UpsertPattern(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPatternStatus(ctx, p.ID, model.StatusDeprecated); err != nil {
		t.Fatalf("SetPatternStatus: %v", err)
	}
	got, err := s.GetPattern(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusDeprecated {
		t.Errorf("expected deprecated, got %s", got.Status)
	}
	if err := s.SetPatternStatus(ctx, "AP-NOPE", model.StatusActive); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePatternsErrorWritesNothing(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	defaults := catalog.DefaultPatterns()
	if err := s.ImportPatterns(ctx, defaults[:1]); err != nil {
		t.Fatal(err)
	}

	refused := errors.New("refused")
	err := s.UpdatePatterns(ctx, func(stored []model.Pattern) ([]model.Pattern, error) {
		if len(stored) != 1 || stored[0].ID != defaults[0].ID {
			t.Errorf("unexpected stored set: %+v", stored)
		}
		return nil, refused
	})
	if !errors.Is(err, refused) {
		t.Fatalf("expected refusal, got %v", err)
	}

	got, err := s.LoadPatterns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Status != model.StatusActive {
		t.Errorf("expected store untouched, got %+v", got)
	}
}

func TestMerge(t *testing.T) {
	a := model.Pattern{ID: "A", Status: model.StatusActive}
	b := model.Pattern{ID: "B", Status: model.StatusActive}
	c := model.Pattern{ID: "C", Status: model.StatusDraft}

	archivedA := a
	archivedA.Status = model.StatusArchived
	stored := []model.Pattern{a, b}

	got := Merge(stored, []model.Pattern{c, archivedA})
	if len(got) != 3 || got[0].ID != "A" || got[1].ID != "B" || got[2].ID != "C" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Status != model.StatusArchived {
		t.Errorf("expected A replaced in place, got %s", got[0].Status)
	}
	if stored[0].Status != model.StatusActive {
		t.Error("Merge must not modify its input")
	}
}

func TestWithStatusNotFound(t *testing.T) {
	if _, err := WithStatus(nil, "missing", model.StatusActive); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoricalStats(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	record := func(ct model.ChangeType, success bool) {
		t.Helper()
		if _, err := s.RecordOutcome(ctx, Outcome{
			IssueID:    "ISSUE-1",
			Pathway:    model.PathwayQuickFix,
			ChangeType: ct,
			Success:    success,
		}); err != nil {
			t.Fatalf("RecordOutcome: %v", err)
		}
	}
	for i := 0; i < 9; i++ {
		record(model.ChangeBug, true)
	}
	record(model.ChangeBug, false)
	record(model.ChangeRefactor, false)

	stats, err := s.LoadHistoricalStats(ctx, model.StatsQuery{Pathway: model.PathwayQuickFix, ChangeType: model.ChangeBug})
	if err != nil {
		t.Fatalf("LoadHistoricalStats: %v", err)
	}
	if stats.SampleCount != 10 || stats.SuccessRate != 0.9 {
		t.Errorf("expected 10 samples at 0.9, got %+v", stats)
	}

	all, err := s.LoadHistoricalStats(ctx, model.StatsQuery{Pathway: model.PathwayQuickFix})
	if err != nil {
		t.Fatal(err)
	}
	if all.SampleCount != 11 {
		t.Errorf("expected 11 samples across types, got %d", all.SampleCount)
	}

	none, err := s.LoadHistoricalStats(ctx, model.StatsQuery{Pathway: model.PathwayMicroFix})
	if err != nil {
		t.Fatal(err)
	}
	if none.SampleCount != 0 || none.SuccessRate != 0 {
		t.Errorf("expected empty stats, got %+v", none)
	}
}

func TestRecordOutcomeKeepsGivenID(t *testing.T) {
	s := openTemp(t)
	id, err := s.RecordOutcome(context.Background(), Outcome{ID: "fixed-id", Pathway: model.PathwayMicroFix})
	if err != nil {
		t.Fatal(err)
	}
	if id != "fixed-id" {
		t.Errorf("expected fixed-id, got %s", id)
	}
	if _, err := s.RecordOutcome(context.Background(), Outcome{ID: "fixed-id"}); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestStatsReadRetriesThenFails(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s, err := Open(filepath.Join(t.TempDir(), "leoscore.db"),
		WithLogger(zap.New(core)),
		WithRetry(2, time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	_, err = s.LoadHistoricalStats(context.Background(), model.StatsQuery{Pathway: model.PathwayQuickFix})
	if err == nil {
		t.Fatal("expected error from closed database")
	}
	if logs.Len() != 2 {
		t.Errorf("expected 2 retry warnings, got %d", logs.Len())
	}
}

func TestAssessmentsNewestFirst(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, level := range []model.RiskLevel{model.RiskLow, model.RiskHigh, model.RiskCritical} {
		id, err := s.SaveAssessment(ctx, model.Assessment{
			SubjectID:  "venture-1",
			RiskLevel:  level,
			Matches:    []model.Match{},
			AssessedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("SaveAssessment: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated id")
		}
	}
	if _, err := s.SaveAssessment(ctx, model.Assessment{SubjectID: "other", RiskLevel: model.RiskNone}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListAssessments(ctx, "venture-1", 2)
	if err != nil {
		t.Fatalf("ListAssessments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 assessments, got %d", len(got))
	}
	if got[0].RiskLevel != model.RiskCritical || got[1].RiskLevel != model.RiskHigh {
		t.Errorf("expected newest first, got %s then %s", got[0].RiskLevel, got[1].RiskLevel)
	}
	if !got[0].AssessedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("unexpected timestamp %v", got[0].AssessedAt)
	}
}
