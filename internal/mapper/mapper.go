// Package mapper ranks catalog patterns against free-text post-mortems.
package mapper

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/policy"
	"github.com/leoprotocol/leoscore/internal/scorer"
	"github.com/leoprotocol/leoscore/internal/signal"
)

// Mapper suggests which patterns a post-mortem most likely describes.
type Mapper struct {
	catalog *catalog.Catalog
	cfg     policy.MappingConfig
}

// New creates a Mapper bound to a catalog snapshot.
func New(cat *catalog.Catalog, cfg policy.MappingConfig) *Mapper {
	return &Mapper{catalog: cat, cfg: cfg}
}

// Suggest returns patterns matching pm, highest confidence first.
// Equal confidences are ordered by pattern id.
func (m *Mapper) Suggest(pm model.PostMortem) []model.Match {
	corpus, whys := corpusOf(pm)

	out := []model.Match{}
	m.catalog.Each(func(p *model.Pattern) {
		if match, ok := m.match(p, corpus, whys); ok {
			out = append(out, match)
		}
	})

	slices.SortStableFunc(out, func(a, b model.Match) int {
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(a.PatternID, b.PatternID)
	})
	if m.cfg.MaxSuggestions > 0 && len(out) > m.cfg.MaxSuggestions {
		out = out[:m.cfg.MaxSuggestions]
	}
	return out
}

func (m *Mapper) match(p *model.Pattern, corpus string, whys []string) (model.Match, bool) {
	total := len(p.DetectionSignals)
	if total == 0 {
		return model.Match{}, false
	}

	var matched []string
	for _, s := range p.DetectionSignals {
		if signal.MatchText(s, corpus) {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return model.Match{}, false
	}

	contributing := 0
	for _, why := range whys {
		for _, s := range p.DetectionSignals {
			if signal.MatchText(s, why) {
				contributing++
				break
			}
		}
	}

	confidence := m.Confidence(len(matched), total, contributing)
	if confidence < m.cfg.ConfidenceFloor {
		return model.Match{}, false
	}

	return model.Match{
		PatternID:      p.ID,
		PatternName:    p.Name,
		Category:       p.Category,
		Severity:       p.Severity,
		MatchedSignals: matched,
		Confidence:     confidence,
		ImpactScore:    scorer.ImpactScore(p.ImpactWeight, confidence),
	}, true
}

// Confidence combines the signal ratio with the per-why bonus.
func (m *Mapper) Confidence(matched, total, whys int) int {
	if total <= 0 || matched <= 0 {
		return 0
	}
	ratio := float64(matched) / float64(total)
	raw := ratio*m.cfg.SignalWeight + m.cfg.WhyBonus*float64(whys)
	return scorer.Clamp(int(math.Round(raw)))
}

// corpusOf lowercases the summary and why answers. Empty whys are dropped.
func corpusOf(pm model.PostMortem) (string, []string) {
	parts := make([]string, 0, len(pm.Whys)+1)
	if s := strings.TrimSpace(pm.Summary); s != "" {
		parts = append(parts, strings.ToLower(s))
	}
	whys := make([]string, 0, len(pm.Whys))
	for _, w := range pm.Whys {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		lw := strings.ToLower(w)
		whys = append(whys, lw)
		parts = append(parts, lw)
	}
	return strings.Join(parts, "\n"), whys
}
