package policydiff

import (
	"strings"
	"testing"

	"github.com/leoprotocol/leoscore/internal/alert"
	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/policy"
)

func findChange(r *DiffResult, field string) (Change, bool) {
	for _, c := range r.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return Change{}, false
}

func TestIdenticalPoliciesNoChanges(t *testing.T) {
	r := Diff(policy.DefaultConfig(), policy.DefaultConfig())
	if r.HasChanges {
		t.Errorf("expected no changes, got %d changes + %d alert changes",
			len(r.Changes), len(r.AlertChanges))
	}
}

func TestChangedThresholdsDetected(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*policy.PolicyConfig)
		field   string
		old     string
		new     string
		comment string
	}{
		{
			name:    "lower critical level",
			mutate:  func(c *policy.PolicyConfig) { c.Scoring.Levels.Critical = 75 },
			field:   "scoring.levels.critical",
			old:     "80",
			new:     "75",
			comment: "stricter",
		},
		{
			name:    "raised quick threshold",
			mutate:  func(c *policy.PolicyConfig) { c.Bypass.QuickThreshold = 80 },
			field:   "bypass.quick_threshold",
			old:     "70",
			new:     "80",
			comment: "stricter",
		},
		{
			name:    "larger micro fixes",
			mutate:  func(c *policy.PolicyConfig) { c.Bypass.MicroMaxLOC = 20 },
			field:   "bypass.micro_max_loc",
			old:     "10",
			new:     "20",
			comment: "looser",
		},
		{
			name:    "mapping weight",
			mutate:  func(c *policy.PolicyConfig) { c.Mapping.SignalWeight = 70.5 },
			field:   "mapping.signal_weight",
			old:     "80",
			new:     "70.5",
			comment: "",
		},
		{
			name:    "fail on stats",
			mutate:  func(c *policy.PolicyConfig) { c.Bypass.StatsFailure = policy.StatsFail },
			field:   "bypass.stats_failure",
			old:     "degrade",
			new:     "fail",
			comment: "stricter",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := policy.DefaultConfig()
			tt.mutate(b)
			r := Diff(policy.DefaultConfig(), b)
			if !r.HasChanges {
				t.Fatal("expected changes")
			}
			c, ok := findChange(r, tt.field)
			if !ok {
				t.Fatalf("%s change not found in %+v", tt.field, r.Changes)
			}
			if c.Old != tt.old || c.New != tt.new || c.Comment != tt.comment {
				t.Errorf("expected %s→%s (%s), got %s→%s (%s)", tt.old, tt.new, tt.comment, c.Old, c.New, c.Comment)
			}
		})
	}
}

func TestAlertChanges(t *testing.T) {
	a := policy.DefaultConfig()
	a.Alerts = []alert.AlertConfig{
		{URL: "https://a.example/hook", Format: "slack", Events: []string{"critical"}},
		{URL: "https://b.example/hook", Events: []string{"blocked"}},
	}
	b := policy.DefaultConfig()
	b.Alerts = []alert.AlertConfig{
		{URL: "https://a.example/hook", Format: "slack", Events: []string{"critical", "high"}},
		{URL: "https://c.example/hook", Format: "pagerduty", Events: []string{"full_sd"}},
	}

	r := Diff(a, b)
	types := map[string]int{}
	for _, ac := range r.AlertChanges {
		types[ac.Type]++
	}
	if types["added"] != 1 || types["removed"] != 1 || types["changed"] != 1 {
		t.Errorf("expected one of each alert change, got %+v", r.AlertChanges)
	}
}

func TestDiffCatalogs(t *testing.T) {
	old := catalog.DefaultPatterns()
	new := catalog.DefaultPatterns()

	new[0].ImpactWeight = 99
	new[0].Status = model.StatusDeprecated
	removed := new[1].ID
	new = append(new[:1], new[2:]...)
	new = append(new, model.Pattern{
		ID: "AP-NEW-001", Name: "Fresh", Category: model.CategoryProcess,
		Severity: model.SeverityLow, ImpactWeight: 10, Status: model.StatusDraft,
	})

	r := DiffCatalogs(old, new)
	if !r.HasChanges {
		t.Fatal("expected changes")
	}
	var added, gone, changed string
	for _, pc := range r.PatternChanges {
		switch pc.Type {
		case "added":
			added = pc.Item
		case "removed":
			gone = pc.Item
		case "changed":
			changed = pc.Item
		}
	}
	if !strings.HasPrefix(added, "AP-NEW-001") {
		t.Errorf("expected AP-NEW-001 added, got %q", added)
	}
	if !strings.HasPrefix(gone, removed) {
		t.Errorf("expected %s removed, got %q", removed, gone)
	}
	if !strings.Contains(changed, "status active → deprecated") || !strings.Contains(changed, "→ 99") {
		t.Errorf("unexpected change detail %q", changed)
	}
}

func TestDiffCatalogsIdentical(t *testing.T) {
	r := DiffCatalogs(catalog.DefaultPatterns(), catalog.DefaultPatterns())
	if r.HasChanges {
		t.Errorf("expected no changes, got %+v", r.PatternChanges)
	}
}

func TestFormatText(t *testing.T) {
	b := policy.DefaultConfig()
	b.Scoring.ConfidenceFloor = 25
	b.Bypass.QuickMaxLOC = 40
	r := Diff(policy.DefaultConfig(), b)
	r.OldPath, r.NewPath = "old.yaml", "new.yaml"

	out := FormatText(r)
	for _, want := range []string{
		"Diff: old.yaml → new.yaml",
		"Scoring:",
		"confidence_floor:",
		"30 → 25  (stricter)",
		"Bypass:",
		"50 → 40  (stricter)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	none := FormatText(Diff(policy.DefaultConfig(), policy.DefaultConfig()))
	if !strings.Contains(none, "No changes detected.") {
		t.Errorf("expected no-change message, got %q", none)
	}
}
