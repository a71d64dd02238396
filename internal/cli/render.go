package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leoprotocol/leoscore/internal/model"
)

// readInput decodes a YAML or JSON document from path, or stdin for "-".
func readInput(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func formatAssessment(a model.Assessment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject:     %s\n", a.SubjectID)
	fmt.Fprintf(&b, "Risk level:  %s\n", strings.ToUpper(string(a.RiskLevel)))
	fmt.Fprintf(&b, "Impact:      total %d, average %.1f\n", a.TotalImpact, a.AverageImpact)

	if len(a.Matches) == 0 {
		b.WriteString("\nNo patterns matched.\n")
		return b.String()
	}

	b.WriteString("\nMatched patterns:\n")
	b.WriteString(formatMatches(a.Matches))

	if len(a.HighRiskPatterns) > 0 {
		fmt.Fprintf(&b, "\nHigh risk: %s\n", strings.Join(a.HighRiskPatterns, ", "))
	}
	if len(a.Recommendations) > 0 {
		b.WriteString("\nRecommendations:\n")
		for i, r := range a.Recommendations {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, r)
		}
	}
	return b.String()
}

func formatMatches(matches []model.Match) string {
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "  %-12s %-8s %3d%%  impact %-3d %s\n",
			m.PatternID, m.Severity, m.Confidence, m.ImpactScore, m.PatternName)
		for _, s := range m.MatchedSignals {
			fmt.Fprintf(&b, "      - %s\n", s)
		}
	}
	return b.String()
}

func formatBypass(r model.BypassResult) string {
	var b strings.Builder
	verdict := "no"
	if r.Bypass {
		verdict = "yes"
	}
	fmt.Fprintf(&b, "Pathway:     %s\n", r.Pathway)
	fmt.Fprintf(&b, "Bypass:      %s\n", verdict)
	fmt.Fprintf(&b, "Confidence:  %d\n", r.Confidence)
	fmt.Fprintf(&b, "Reason:      %s\n", r.Reason)
	if r.Blocked {
		b.WriteString("Blocked:     yes\n")
	}
	if r.Degraded {
		b.WriteString("Note:        historical stats unavailable, no history adjustment applied\n")
	}
	return b.String()
}

func formatPatternList(patterns []model.Pattern) string {
	if len(patterns) == 0 {
		return "No patterns.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-14s %-9s %-7s %s\n", "ID", "CATEGORY", "SEVERITY", "WEIGHT", "NAME")
	for _, p := range patterns {
		fmt.Fprintf(&b, "%-12s %-14s %-9s %-7g %s\n", p.ID, p.Category, p.Severity, p.ImpactWeight, p.Name)
	}
	return b.String()
}

func formatPattern(p model.Pattern) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", p.ID, p.Name)
	fmt.Fprintf(&b, "  category: %s  severity: %s  weight: %g  status: %s\n", p.Category, p.Severity, p.ImpactWeight, p.Status)
	if p.Description != "" {
		fmt.Fprintf(&b, "\n  %s\n", p.Description)
	}
	if len(p.DetectionSignals) > 0 {
		b.WriteString("\n  Detection signals:\n")
		for _, s := range p.DetectionSignals {
			fmt.Fprintf(&b, "    - %s\n", s)
		}
	}
	if len(p.PreventionMeasures) > 0 {
		b.WriteString("\n  Prevention measures:\n")
		for _, m := range p.PreventionMeasures {
			fmt.Fprintf(&b, "    - %s (effectiveness %d%%, effort %s)\n", m.Measure, m.Effectiveness, m.Effort)
		}
	}
	return b.String()
}

func parseRiskLevel(s string) (model.RiskLevel, error) {
	l := model.RiskLevel(strings.ToLower(s))
	if _, ok := model.RiskRank[l]; !ok {
		return "", fmt.Errorf("unknown risk level %q (want none|low|medium|high|critical)", s)
	}
	return l, nil
}
