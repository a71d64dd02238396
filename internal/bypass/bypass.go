// Package bypass decides whether a proposed change may skip the full
// governance process.
//
// Evaluation order (first decisive step wins):
//  1. blockers: schema change, auth change, critical severity, sensitive keyword
//  2. micro fix: tiny, single non-critical file, typo/documentation/bug
//  3. quick fix: scored candidate, bypasses at or above the threshold
//  4. full process, naming the first failed criterion
package bypass

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/denylist"
	"github.com/leoprotocol/leoscore/internal/logging"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/policy"
	"github.com/leoprotocol/leoscore/internal/scorer"
)

// ErrInvalidIssue is returned for issues that cannot be evaluated.
var ErrInvalidIssue = errors.New("invalid issue")

// StatsProvider loads historical outcomes of bypassed changes.
type StatsProvider interface {
	LoadHistoricalStats(ctx context.Context, q model.StatsQuery) (model.HistoricalStats, error)
}

// Evaluator applies the bypass decision table.
type Evaluator struct {
	cfg      policy.BypassConfig
	denylist *denylist.Denylist
	stats    StatsProvider
	logger   *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithStats sets the historical stats source. Without one, no history
// adjustment is applied.
func WithStats(s StatsProvider) Option {
	return func(e *Evaluator) { e.stats = s }
}

// WithLogger sets the logger used for degraded evaluations.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) { e.logger = logging.OrNop(l) }
}

// New creates an Evaluator. A nil denylist uses the built-in defaults.
func New(cfg policy.BypassConfig, dl *denylist.Denylist, opts ...Option) *Evaluator {
	if dl == nil {
		dl = denylist.NewDefault()
	}
	e := &Evaluator{
		cfg:      cfg,
		denylist: dl,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate classifies issue into a governance pathway.
// An error is returned only for invalid input or, under the "fail" stats
// policy, when historical stats cannot be loaded.
func (e *Evaluator) Evaluate(ctx context.Context, issue model.Issue) (model.BypassResult, error) {
	if err := validate(issue); err != nil {
		return model.BypassResult{}, err
	}

	if reason, blocked := e.blocker(issue); blocked {
		return model.BypassResult{
			Pathway:    model.PathwayFullSD,
			Confidence: 100,
			Reason:     reason,
			Blocked:    true,
		}, nil
	}

	critical := e.denylist.CriticalFiles(issue.AffectedFiles)

	if e.isMicro(issue, critical) {
		return model.BypassResult{
			Bypass:     true,
			Pathway:    model.PathwayMicroFix,
			Confidence: e.cfg.MicroConfidence,
			Reason:     fmt.Sprintf("micro fix: %s change of %d LOC", issue.Type, issue.EstimatedLOC),
		}, nil
	}

	if reason := e.quickFailure(issue); reason != "" {
		return model.BypassResult{
			Pathway:    model.PathwayFullSD,
			Confidence: 100,
			Reason:     reason,
		}, nil
	}

	return e.scoreQuick(ctx, issue, critical)
}

func validate(issue model.Issue) error {
	if issue.EstimatedLOC < 0 {
		return fmt.Errorf("%w: estimated_loc must not be negative (got %d)", ErrInvalidIssue, issue.EstimatedLOC)
	}
	if issue.Severity != "" && !issue.Severity.IsValid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidIssue, issue.Severity)
	}
	return nil
}

func (e *Evaluator) blocker(issue model.Issue) (string, bool) {
	switch {
	case issue.HasSchemaChanges:
		return "blocked: schema changes require full process", true
	case issue.HasAuthChanges:
		return "blocked: auth changes require full process", true
	case issue.Severity == model.SeverityCritical:
		return "blocked: critical severity requires full process", true
	}
	for _, text := range []string{issue.Title, issue.Description} {
		if found, reason := e.denylist.ContainsSensitive(text); found {
			return "blocked: " + reason, true
		}
	}
	return "", false
}

func (e *Evaluator) isMicro(issue model.Issue, critical []string) bool {
	if issue.EstimatedLOC > e.cfg.MicroMaxLOC || len(issue.AffectedFiles) > e.cfg.MicroMaxFiles {
		return false
	}
	if len(critical) > 0 {
		return false
	}
	switch issue.Type {
	case model.ChangeTypo, model.ChangeDocumentation, model.ChangeBug:
		return true
	}
	return false
}

// quickFailure names the first quick-fix criterion issue fails, or "".
func (e *Evaluator) quickFailure(issue model.Issue) string {
	switch {
	case issue.EstimatedLOC > e.cfg.QuickMaxLOC:
		return fmt.Sprintf("estimated %d LOC exceeds quick fix limit %d", issue.EstimatedLOC, e.cfg.QuickMaxLOC)
	case issue.Severity != model.SeverityLow && issue.Severity != model.SeverityMedium:
		sev := string(issue.Severity)
		if sev == "" {
			sev = "unspecified"
		}
		return fmt.Sprintf("severity %s requires full process", sev)
	case issue.Type == model.ChangeFeature:
		return "feature changes require full process"
	case len(issue.AffectedFiles) > e.cfg.QuickMaxFiles:
		return fmt.Sprintf("%d affected files exceeds quick fix limit %d", len(issue.AffectedFiles), e.cfg.QuickMaxFiles)
	}
	return ""
}

func (e *Evaluator) scoreQuick(ctx context.Context, issue model.Issue, critical []string) (model.BypassResult, error) {
	confidence := e.QuickBase(issue.EstimatedLOC)
	if len(critical) > 0 {
		confidence -= e.cfg.CriticalPathPenalty
	}
	if extra := len(issue.AffectedFiles) - 1; extra > 0 {
		confidence -= extra * e.cfg.ExtraFilePenalty
	}

	adjust, degraded, err := e.history(ctx, issue)
	if err != nil {
		return model.BypassResult{}, err
	}
	confidence = scorer.Clamp(confidence + adjust)

	if confidence < e.cfg.QuickThreshold {
		return model.BypassResult{
			Pathway:    model.PathwayFullSD,
			Confidence: confidence,
			Reason:     fmt.Sprintf("confidence %d below threshold %d", confidence, e.cfg.QuickThreshold),
			Degraded:   degraded,
		}, nil
	}
	return model.BypassResult{
		Bypass:     true,
		Pathway:    model.PathwayQuickFix,
		Confidence: confidence,
		Reason:     fmt.Sprintf("quick fix: %d LOC across %d file(s)", issue.EstimatedLOC, len(issue.AffectedFiles)),
		Degraded:   degraded,
	}, nil
}

// QuickBase returns the quick-fix confidence before penalties and history:
// the closer to the LOC ceiling, the lower the base.
func (e *Evaluator) QuickBase(loc int) int {
	if e.cfg.QuickMaxLOC <= 0 {
		return e.cfg.QuickBase
	}
	headroom := float64(e.cfg.QuickMaxLOC-loc) / float64(e.cfg.QuickMaxLOC)
	return e.cfg.QuickBase + int(math.Round(float64(e.cfg.QuickSpan)*headroom))
}

// history returns the confidence adjustment from past quick-fix outcomes.
func (e *Evaluator) history(ctx context.Context, issue model.Issue) (int, bool, error) {
	if e.stats == nil {
		return 0, false, nil
	}

	q := model.StatsQuery{Pathway: model.PathwayQuickFix, ChangeType: issue.Type}
	stats, err := e.stats.LoadHistoricalStats(ctx, q)
	if err != nil {
		if e.cfg.StatsFailure == policy.StatsFail {
			return 0, false, fmt.Errorf("load historical stats: %w", err)
		}
		e.logger.Warn("historical stats unavailable, continuing without history",
			zap.String("issue", issue.ID),
			zap.String("change_type", string(issue.Type)),
			zap.Error(err))
		return 0, true, nil
	}

	return Adjustment(stats, e.cfg.History), false, nil
}

// Adjustment maps historical stats to a confidence delta. Histories with
// fewer than MinSamples outcomes are ignored.
func Adjustment(stats model.HistoricalStats, h policy.HistoryConfig) int {
	if stats.SampleCount < h.MinSamples {
		return 0
	}
	switch {
	case stats.SuccessRate >= h.HighRate:
		return h.HighBonus
	case stats.SuccessRate < h.LowRate:
		return -h.LowPenalty
	}
	return 0
}
