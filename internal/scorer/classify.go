package scorer

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/policy"
)

// Classify derives the risk level of a set of matches.
//
// Order (first match wins):
//  1. any critical-severity match above CriticalConfidence -> critical
//  2. no matches -> none
//  3. average impact against the level thresholds
//
// Rule 3 can yield critical without any critical-severity pattern.
func Classify(matches []model.Match, cfg policy.ScoringConfig) model.RiskLevel {
	for _, m := range matches {
		if m.Severity == model.SeverityCritical && m.Confidence > cfg.CriticalConfidence {
			return model.RiskCritical
		}
	}
	if len(matches) == 0 {
		return model.RiskNone
	}
	return LevelForImpact(AverageImpact(matches), cfg.Levels)
}

// LevelForImpact maps an average impact score to a risk level.
func LevelForImpact(avg float64, levels policy.LevelThresholds) model.RiskLevel {
	switch {
	case avg >= levels.Critical:
		return model.RiskCritical
	case avg >= levels.High:
		return model.RiskHigh
	case avg >= levels.Medium:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// TotalImpact sums the impact scores of matches.
func TotalImpact(matches []model.Match) int {
	total := 0
	for _, m := range matches {
		total += m.ImpactScore
	}
	return total
}

// AverageImpact returns the mean impact score, or 0 for no matches.
func AverageImpact(matches []model.Match) float64 {
	if len(matches) == 0 {
		return 0
	}
	return float64(TotalImpact(matches)) / float64(len(matches))
}

// HighRiskPatterns returns ids of matches with high or critical severity.
func HighRiskPatterns(matches []model.Match) []string {
	ids := []string{}
	for _, m := range matches {
		if model.SeverityRank[m.Severity] >= model.SeverityRank[model.SeverityHigh] {
			ids = append(ids, m.PatternID)
		}
	}
	return ids
}

// RankByImpact returns a copy of matches ordered by impact score descending.
// Ties are broken by pattern id ascending.
func RankByImpact(matches []model.Match) []model.Match {
	ranked := slices.Clone(matches)
	slices.SortStableFunc(ranked, func(a, b model.Match) int {
		if c := cmp.Compare(b.ImpactScore, a.ImpactScore); c != 0 {
			return c
		}
		return cmp.Compare(a.PatternID, b.PatternID)
	})
	return ranked
}

// Recommend emits the first prevention measure of the top matches by impact,
// formatted "[patternId] measure". Patterns without measures contribute nothing.
func Recommend(matches []model.Match, lookup func(id string) (model.Pattern, bool), limit int) []string {
	recs := []string{}
	ranked := RankByImpact(matches)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for _, m := range ranked {
		p, ok := lookup(m.PatternID)
		if !ok || len(p.PreventionMeasures) == 0 {
			continue
		}
		recs = append(recs, fmt.Sprintf("[%s] %s", m.PatternID, p.PreventionMeasures[0].Measure))
	}
	return recs
}
