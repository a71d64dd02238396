package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/model"
)

func testEngine(t *testing.T) (*engine.Engine, engine.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := engine.Config{
		PolicyPath:   filepath.Join(dir, "policy.yaml"),
		DenylistPath: filepath.Join(dir, "denylist.yaml"),
	}
	eng, err := engine.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng, cfg
}

// testServer spins up an in-process gRPC server on a random port and returns a connection.
func testServer(t *testing.T) *grpc.ClientConn {
	t.Helper()

	eng, _ := testEngine(t)
	srv := New(eng, Config{}, nil)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.ServeOn(lis)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		srv.GracefulStop()
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.GracefulStop()
	})
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, req any, resp any) error {
	t.Helper()
	in, err := Encode(req)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := new(structpb.Struct)
	if err := conn.Invoke(context.Background(), method, in, out); err != nil {
		return err
	}
	if err := Decode(out, resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return nil
}

func TestScoreRPC(t *testing.T) {
	conn := testServer(t)

	var a model.Assessment
	err := invoke(t, conn, MethodScore, ScoreRequest{
		SubjectID: "seed-venture",
		Context: &model.Context{
			RunwayMonths:            model.Float(4),
			InfrastructureCostRatio: model.Float(0.45),
			Flags:                   map[string]bool{"follow-on funding": true},
		},
	}, &a)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if a.SubjectID != "seed-venture" {
		t.Errorf("expected subject echoed, got %q", a.SubjectID)
	}
	if a.RiskLevel != model.RiskCritical {
		t.Errorf("expected critical, got %s", a.RiskLevel)
	}
	if len(a.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
}

func TestScoreRequiresSubject(t *testing.T) {
	conn := testServer(t)

	var a model.Assessment
	err := invoke(t, conn, MethodScore, ScoreRequest{}, &a)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestSuggestRPC(t *testing.T) {
	conn := testServer(t)

	var resp SuggestResponse
	err := invoke(t, conn, MethodSuggest, model.PostMortem{
		ID:      "pm-7",
		Summary: "Database connection pooling exhausted during the launch",
		Whys:    []string{"Connection timeouts under peak load"},
	}, &resp)
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if resp.PostMortemID != "pm-7" {
		t.Errorf("expected pm-7, got %q", resp.PostMortemID)
	}
	if len(resp.Suggestions) == 0 || resp.Suggestions[0].PatternID != "AP-TECH-002" {
		t.Fatalf("expected AP-TECH-002 first, got %+v", resp.Suggestions)
	}
}

func TestEvaluateBypassRPC(t *testing.T) {
	conn := testServer(t)

	tests := []struct {
		name    string
		issue   model.Issue
		pathway model.Pathway
		blocked bool
	}{
		{
			name: "typo",
			issue: model.Issue{ID: "i-1", Title: "Fix typo in README", EstimatedLOC: 2, Severity: "low",
				AffectedFiles: []string{"README.md"}, Type: model.ChangeTypo},
			pathway: model.PathwayMicroFix,
		},
		{
			name: "schema",
			issue: model.Issue{ID: "i-2", Title: "Add column", EstimatedLOC: 5, Severity: "low",
				AffectedFiles: []string{"db/schema.go"}, Type: model.ChangeFeature, HasSchemaChanges: true},
			pathway: model.PathwayFullSD,
			blocked: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r model.BypassResult
			if err := invoke(t, conn, MethodEvaluateBypass, tt.issue, &r); err != nil {
				t.Fatalf("EvaluateBypass: %v", err)
			}
			if r.Pathway != tt.pathway || r.Blocked != tt.blocked {
				t.Errorf("expected %s blocked=%v, got %s blocked=%v (%s)", tt.pathway, tt.blocked, r.Pathway, r.Blocked, r.Reason)
			}
		})
	}
}

func TestEvaluateBypassInvalidIssue(t *testing.T) {
	conn := testServer(t)

	var r model.BypassResult
	err := invoke(t, conn, MethodEvaluateBypass, model.Issue{ID: "bad", EstimatedLOC: -3}, &r)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestListPatternsRPC(t *testing.T) {
	conn := testServer(t)

	var all ListPatternsResponse
	if err := invoke(t, conn, MethodListPatterns, ListPatternsRequest{}, &all); err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	if len(all.Patterns) == 0 || all.CatalogHash == "" {
		t.Fatalf("expected patterns and hash, got %+v", all)
	}

	var fin ListPatternsResponse
	if err := invoke(t, conn, MethodListPatterns, ListPatternsRequest{Category: model.CategoryFinancial}, &fin); err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	for _, p := range fin.Patterns {
		if p.Category != model.CategoryFinancial {
			t.Errorf("expected financial only, got %s", p.Category)
		}
	}

	var one ListPatternsResponse
	if err := invoke(t, conn, MethodListPatterns, ListPatternsRequest{ID: "AP-FIN-001"}, &one); err != nil {
		t.Fatalf("ListPatterns: %v", err)
	}
	if len(one.Patterns) != 1 || one.Patterns[0].ID != "AP-FIN-001" {
		t.Errorf("expected AP-FIN-001, got %+v", one.Patterns)
	}

	var missing ListPatternsResponse
	err := invoke(t, conn, MethodListPatterns, ListPatternsRequest{ID: "AP-NOPE"}, &missing)
	if status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestEncodeDecodeKeepsNilFacts(t *testing.T) {
	s, err := Encode(ScoreRequest{SubjectID: "x", Context: &model.Context{BusFactor: model.Int(1)}})
	if err != nil {
		t.Fatal(err)
	}
	var back ScoreRequest
	if err := Decode(s, &back); err != nil {
		t.Fatal(err)
	}
	if back.Context == nil || back.Context.BusFactor == nil || *back.Context.BusFactor != 1 {
		t.Fatalf("expected bus_factor=1, got %+v", back.Context)
	}
	if back.Context.RunwayMonths != nil {
		t.Error("expected runway_months to stay nil")
	}
}

func TestReloaderPicksUpPolicyChange(t *testing.T) {
	eng, cfg := testEngine(t)
	if err := os.WriteFile(cfg.PolicyPath, []byte("scoring:\n  confidence_floor: 30\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := NewReloader(eng, eng.WatchPaths(), nil)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	if len(r.Paths()) != 2 || r.Paths()[0] != cfg.PolicyPath || r.Paths()[1] != cfg.DenylistPath {
		t.Fatalf("expected policy and denylist watched, got %v", r.Paths())
	}
	r.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	before := eng.PolicyHash()
	if err := os.WriteFile(cfg.PolicyPath, []byte("scoring:\n  confidence_floor: 45\n"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if eng.PolicyHash() != before {
			if got := eng.Policy().Scoring.ConfidenceFloor; got != 45 {
				t.Fatalf("expected floor 45, got %d", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("policy was not reloaded")
}

// saveAtomically replaces path the way editors do: write a sibling file,
// then rename it over the original.
func saveAtomically(t *testing.T, path, content string) {
	t.Helper()
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
}

func waitForFloor(t *testing.T, eng *engine.Engine, want int) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if eng.Policy().Scoring.ConfidenceFloor == want {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("expected floor %d, got %d", want, eng.Policy().Scoring.ConfidenceFloor)
}

func TestReloaderSurvivesAtomicSaves(t *testing.T) {
	eng, cfg := testEngine(t)
	if err := os.WriteFile(cfg.PolicyPath, []byte("scoring:\n  confidence_floor: 30\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := NewReloader(eng, eng.WatchPaths(), nil)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	r.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	saveAtomically(t, cfg.PolicyPath, "scoring:\n  confidence_floor: 45\n")
	waitForFloor(t, eng, 45)

	saveAtomically(t, cfg.PolicyPath, "scoring:\n  confidence_floor: 55\n")
	waitForFloor(t, eng, 55)
}

func TestReloaderFiltersEvents(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "policy.yaml")

	r, err := NewReloader(nil, []string{policyPath, "", "/nonexistent-dir/denylist.yaml"}, nil)
	if err != nil {
		t.Fatalf("NewReloader: %v", err)
	}
	defer r.watcher.Close()

	if got := r.Paths(); len(got) != 1 || got[0] != policyPath {
		t.Fatalf("expected only the policy path watched, got %v", got)
	}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: policyPath, Op: fsnotify.Write}, true},
		{"create by rename", fsnotify.Event{Name: policyPath, Op: fsnotify.Create}, true},
		{"removed", fsnotify.Event{Name: policyPath, Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: policyPath, Op: fsnotify.Chmod}, false},
		{"sibling file", fsnotify.Event{Name: filepath.Join(dir, "policy.yaml.tmp"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		if got := r.relevant(tt.event); got != tt.want {
			t.Errorf("%s: relevant = %v, want %v", tt.name, got, tt.want)
		}
	}
}
