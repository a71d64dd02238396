package mcp

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	eng, err := engine.New(context.Background(), engine.Config{
		PolicyPath:   filepath.Join(dir, "policy.yaml"),
		DenylistPath: filepath.Join(dir, "denylist.yaml"),
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return New(eng, "test", nil)
}

func TestScoreTool(t *testing.T) {
	s := newTestServer(t)

	result, out, err := s.handleScore(context.Background(), &mcpsdk.CallToolRequest{}, ScoreInput{
		SubjectID: "seed-venture",
		Context: model.Context{
			RunwayMonths:            model.Float(3),
			InfrastructureCostRatio: model.Float(0.5),
			Flags:                   map[string]bool{"follow-on funding": true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if out.RiskLevel != "critical" {
		t.Fatalf("expected critical, got %q", out.RiskLevel)
	}
	if out.AssessedAt == "" {
		t.Error("expected assessed_at to be set")
	}
}

func TestScoreToolRequiresSubject(t *testing.T) {
	s := newTestServer(t)

	_, _, err := s.handleScore(context.Background(), &mcpsdk.CallToolRequest{}, ScoreInput{})
	if err == nil {
		t.Fatal("expected error for missing subject_id")
	}
}

func TestSuggestTool(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSuggest(context.Background(), &mcpsdk.CallToolRequest{}, SuggestInput{
		Summary: "Checkout outage: database connection pooling exhausted",
		Whys:    []string{"Connection timeouts under peak load"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Suggestions) == 0 || out.Suggestions[0].PatternID != "AP-TECH-002" {
		t.Fatalf("expected AP-TECH-002 first, got %+v", out.Suggestions)
	}
}

func TestSuggestToolRequiresText(t *testing.T) {
	s := newTestServer(t)

	if _, _, err := s.handleSuggest(context.Background(), &mcpsdk.CallToolRequest{}, SuggestInput{ID: "pm"}); err == nil {
		t.Fatal("expected error for empty post-mortem")
	}
}

func TestBypassTool(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleBypass(context.Background(), &mcpsdk.CallToolRequest{}, BypassInput{
		Title:         "Update auth token expiry",
		EstimatedLOC:  4,
		Severity:      "low",
		AffectedFiles: []string{"internal/session.go"},
		Type:          "bug",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Bypass || !out.Blocked || out.Pathway != model.PathwayFullSD {
		t.Fatalf("expected blocked FULL_SD for auth keyword, got %+v", out)
	}
	if !strings.Contains(out.Reason, "sensitive") {
		t.Errorf("expected sensitive keyword reason, got %q", out.Reason)
	}
}

func TestBypassToolInvalidIssue(t *testing.T) {
	s := newTestServer(t)

	result, out, err := s.handleBypass(context.Background(), &mcpsdk.CallToolRequest{}, BypassInput{
		Title:        "negative",
		EstimatedLOC: -1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for invalid issue")
	}
	if out.Reason == "" {
		t.Error("expected reason for invalid issue")
	}
}

func TestPatternsTool(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, all, err := s.handlePatterns(ctx, &mcpsdk.CallToolRequest{}, PatternsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range all.Patterns {
		if p.Status != model.StatusActive {
			t.Errorf("expected only active patterns, got %s for %s", p.Status, p.ID)
		}
	}

	_, tech, err := s.handlePatterns(ctx, &mcpsdk.CallToolRequest{}, PatternsInput{Category: "technical"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tech.Patterns) == 0 || len(tech.Patterns) >= len(all.Patterns) {
		t.Errorf("expected a strict technical subset, got %d of %d", len(tech.Patterns), len(all.Patterns))
	}

	if _, _, err := s.handlePatterns(ctx, &mcpsdk.CallToolRequest{}, PatternsInput{ID: "AP-PROC-002"}); err == nil {
		t.Error("expected deprecated pattern to be not found")
	}
}
