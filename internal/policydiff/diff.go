// Package policydiff compares policy configurations and pattern catalogs.
package policydiff

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/leoprotocol/leoscore/internal/alert"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/policy"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// ItemChange represents an alert or pattern addition, removal, or modification.
type ItemChange struct {
	Type string `json:"type"` // "added", "removed", "changed"
	Item string `json:"item"`
}

// DiffResult holds the comparison of two policies or two catalogs.
type DiffResult struct {
	OldPath        string       `json:"old_path"`
	NewPath        string       `json:"new_path"`
	Changes        []Change     `json:"changes"`
	AlertChanges   []ItemChange `json:"alert_changes"`
	PatternChanges []ItemChange `json:"pattern_changes"`
	HasChanges     bool         `json:"has_changes"`
}

// Strictness direction of a field. Stricter means more subjects are
// flagged risky or fewer issues may bypass the full process.
type direction int

const (
	neutral direction = iota
	higherStricter
	lowerStricter
)

// Diff compares two PolicyConfigs and returns the differences.
func Diff(old, new *policy.PolicyConfig) *DiffResult {
	r := &DiffResult{}

	os, ns := old.Scoring, new.Scoring
	diffInt(r, "scoring.confidence_floor", os.ConfidenceFloor, ns.ConfidenceFloor, lowerStricter)
	diffInt(r, "scoring.critical_confidence", os.CriticalConfidence, ns.CriticalConfidence, lowerStricter)
	diffFloat(r, "scoring.levels.critical", os.Levels.Critical, ns.Levels.Critical, lowerStricter)
	diffFloat(r, "scoring.levels.high", os.Levels.High, ns.Levels.High, lowerStricter)
	diffFloat(r, "scoring.levels.medium", os.Levels.Medium, ns.Levels.Medium, lowerStricter)
	diffInt(r, "scoring.max_recommendations", os.MaxRecommendations, ns.MaxRecommendations, neutral)

	om, nm := old.Mapping, new.Mapping
	diffInt(r, "mapping.confidence_floor", om.ConfidenceFloor, nm.ConfidenceFloor, neutral)
	diffFloat(r, "mapping.signal_weight", om.SignalWeight, nm.SignalWeight, neutral)
	diffFloat(r, "mapping.why_bonus", om.WhyBonus, nm.WhyBonus, neutral)
	diffInt(r, "mapping.max_suggestions", om.MaxSuggestions, nm.MaxSuggestions, neutral)

	ob, nb := old.Bypass, new.Bypass
	diffInt(r, "bypass.micro_max_loc", ob.MicroMaxLOC, nb.MicroMaxLOC, lowerStricter)
	diffInt(r, "bypass.micro_max_files", ob.MicroMaxFiles, nb.MicroMaxFiles, lowerStricter)
	diffInt(r, "bypass.micro_confidence", ob.MicroConfidence, nb.MicroConfidence, neutral)
	diffInt(r, "bypass.quick_max_loc", ob.QuickMaxLOC, nb.QuickMaxLOC, lowerStricter)
	diffInt(r, "bypass.quick_max_files", ob.QuickMaxFiles, nb.QuickMaxFiles, lowerStricter)
	diffInt(r, "bypass.quick_base", ob.QuickBase, nb.QuickBase, lowerStricter)
	diffInt(r, "bypass.quick_span", ob.QuickSpan, nb.QuickSpan, neutral)
	diffInt(r, "bypass.quick_threshold", ob.QuickThreshold, nb.QuickThreshold, higherStricter)
	diffInt(r, "bypass.critical_path_penalty", ob.CriticalPathPenalty, nb.CriticalPathPenalty, higherStricter)
	diffInt(r, "bypass.extra_file_penalty", ob.ExtraFilePenalty, nb.ExtraFilePenalty, higherStricter)
	diffInt(r, "bypass.history.min_samples", ob.History.MinSamples, nb.History.MinSamples, neutral)
	diffFloat(r, "bypass.history.high_rate", ob.History.HighRate, nb.History.HighRate, higherStricter)
	diffInt(r, "bypass.history.high_bonus", ob.History.HighBonus, nb.History.HighBonus, lowerStricter)
	diffFloat(r, "bypass.history.low_rate", ob.History.LowRate, nb.History.LowRate, higherStricter)
	diffInt(r, "bypass.history.low_penalty", ob.History.LowPenalty, nb.History.LowPenalty, higherStricter)

	if ob.StatsFailure != nb.StatsFailure {
		c := Change{Field: "bypass.stats_failure", Old: ob.StatsFailure, New: nb.StatsFailure, Comment: "looser"}
		if nb.StatsFailure == policy.StatsFail {
			c.Comment = "stricter"
		}
		r.Changes = append(r.Changes, c)
	}

	diffAlerts(r, old.Alerts, new.Alerts)

	r.HasChanges = len(r.Changes) > 0 || len(r.AlertChanges) > 0
	return r
}

// DiffCatalogs compares two raw pattern lists by id.
func DiffCatalogs(old, new []model.Pattern) *DiffResult {
	r := &DiffResult{}

	oldMap := make(map[string]model.Pattern, len(old))
	for _, p := range old {
		oldMap[p.ID] = p
	}
	newMap := make(map[string]model.Pattern, len(new))
	for _, p := range new {
		newMap[p.ID] = p
	}

	for _, p := range new {
		prev, exists := oldMap[p.ID]
		if !exists {
			r.PatternChanges = append(r.PatternChanges, ItemChange{
				Type: "added",
				Item: patternLabel(p),
			})
			continue
		}
		if details := patternDelta(prev, p); details != "" {
			r.PatternChanges = append(r.PatternChanges, ItemChange{
				Type: "changed",
				Item: p.ID + " " + details,
			})
		}
	}
	for _, p := range old {
		if _, exists := newMap[p.ID]; !exists {
			r.PatternChanges = append(r.PatternChanges, ItemChange{
				Type: "removed",
				Item: patternLabel(p),
			})
		}
	}

	r.HasChanges = len(r.PatternChanges) > 0
	return r
}

func patternLabel(p model.Pattern) string {
	return fmt.Sprintf("%s %q (%s, %s, weight %s)", p.ID, p.Name, p.Severity, p.Status, formatFloat(p.ImpactWeight))
}

func patternDelta(old, new model.Pattern) string {
	var parts []string
	if old.Status != new.Status {
		parts = append(parts, fmt.Sprintf("status %s → %s", old.Status, new.Status))
	}
	if old.Severity != new.Severity {
		parts = append(parts, fmt.Sprintf("severity %s → %s", old.Severity, new.Severity))
	}
	if old.ImpactWeight != new.ImpactWeight {
		parts = append(parts, fmt.Sprintf("weight %s → %s", formatFloat(old.ImpactWeight), formatFloat(new.ImpactWeight)))
	}
	if !slices.Equal(old.DetectionSignals, new.DetectionSignals) {
		parts = append(parts, fmt.Sprintf("signals %d → %d", len(old.DetectionSignals), len(new.DetectionSignals)))
	}
	if len(old.PreventionMeasures) != len(new.PreventionMeasures) ||
		(len(old.PreventionMeasures) > 0 && old.PreventionMeasures[0] != new.PreventionMeasures[0]) {
		parts = append(parts, "prevention measures changed")
	}
	return strings.Join(parts, ", ")
}

func diffInt(r *DiffResult, field string, old, new int, dir direction) {
	if old != new {
		r.Changes = append(r.Changes, Change{
			Field:   field,
			Old:     strconv.Itoa(old),
			New:     strconv.Itoa(new),
			Comment: comment(new > old, dir),
		})
	}
}

func diffFloat(r *DiffResult, field string, old, new float64, dir direction) {
	if old != new {
		r.Changes = append(r.Changes, Change{
			Field:   field,
			Old:     formatFloat(old),
			New:     formatFloat(new),
			Comment: comment(new > old, dir),
		})
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func comment(increased bool, dir direction) string {
	switch dir {
	case higherStricter:
		if increased {
			return "stricter"
		}
		return "looser"
	case lowerStricter:
		if increased {
			return "looser"
		}
		return "stricter"
	default:
		return ""
	}
}

func alertLabel(a alert.AlertConfig) string {
	format := a.Format
	if format == "" {
		format = "generic"
	}
	return fmt.Sprintf("%s [%s] events=%v", a.URL, format, a.Events)
}

func diffAlerts(r *DiffResult, oldAlerts, newAlerts []alert.AlertConfig) {
	oldMap := make(map[string]alert.AlertConfig)
	for _, a := range oldAlerts {
		oldMap[a.URL] = a
	}
	newMap := make(map[string]alert.AlertConfig)
	for _, a := range newAlerts {
		newMap[a.URL] = a
	}

	for _, a := range newAlerts {
		prev, exists := oldMap[a.URL]
		if !exists {
			r.AlertChanges = append(r.AlertChanges, ItemChange{Type: "added", Item: alertLabel(a)})
			continue
		}
		if prev.Format != a.Format || !slices.Equal(prev.Events, a.Events) {
			r.AlertChanges = append(r.AlertChanges, ItemChange{
				Type: "changed",
				Item: fmt.Sprintf("%s (was: %s)", alertLabel(a), alertLabel(prev)),
			})
		}
	}
	for _, a := range oldAlerts {
		if _, exists := newMap[a.URL]; !exists {
			r.AlertChanges = append(r.AlertChanges, ItemChange{Type: "removed", Item: alertLabel(a)})
		}
	}
}
