// Package scorer computes venture risk assessments from a pattern catalog.
package scorer

import (
	"time"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/policy"
	"github.com/leoprotocol/leoscore/internal/signal"
)

// Scorer evaluates contexts against an immutable catalog snapshot.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	catalog *catalog.Catalog
	matcher *signal.Matcher
	cfg     policy.ScoringConfig
	now     func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithMatcher replaces the default signal matcher.
func WithMatcher(m *signal.Matcher) Option {
	return func(s *Scorer) { s.matcher = m }
}

// WithClock sets the timestamp source for assessments.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// New creates a Scorer bound to a catalog snapshot.
func New(cat *catalog.Catalog, cfg policy.ScoringConfig, opts ...Option) *Scorer {
	s := &Scorer{
		catalog: cat,
		matcher: signal.NewMatcher(nil),
		cfg:     cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the snapshot the scorer evaluates against.
func (s *Scorer) Catalog() *catalog.Catalog {
	return s.catalog
}

// Match evaluates one pattern against c. The bool is false when the pattern
// has no signals or its confidence is below the floor.
func (s *Scorer) Match(p *model.Pattern, c *model.Context) (model.Match, bool) {
	total := len(p.DetectionSignals)
	if total == 0 {
		return model.Match{}, false
	}

	fired := s.matcher.Matched(p.DetectionSignals, c)
	confidence := Confidence(len(fired), total)
	if len(fired) == 0 || confidence < s.cfg.ConfidenceFloor {
		return model.Match{}, false
	}

	return model.Match{
		PatternID:      p.ID,
		PatternName:    p.Name,
		Category:       p.Category,
		Severity:       p.Severity,
		MatchedSignals: fired,
		Confidence:     confidence,
		ImpactScore:    ImpactScore(p.ImpactWeight, confidence),
	}, true
}

// Score assesses one subject against every active pattern.
// Matches keep catalog order.
func (s *Scorer) Score(subjectID string, c *model.Context) model.Assessment {
	matches := []model.Match{}
	s.catalog.Each(func(p *model.Pattern) {
		if m, ok := s.Match(p, c); ok {
			matches = append(matches, m)
		}
	})

	return model.Assessment{
		SubjectID:        subjectID,
		Matches:          matches,
		TotalImpact:      TotalImpact(matches),
		AverageImpact:    AverageImpact(matches),
		RiskLevel:        Classify(matches, s.cfg),
		HighRiskPatterns: HighRiskPatterns(matches),
		Recommendations:  Recommend(matches, s.catalog.GetByID, s.cfg.MaxRecommendations),
		AssessedAt:       s.now(),
	}
}
