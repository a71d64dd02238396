package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/alert"
	"github.com/leoprotocol/leoscore/internal/audit"
	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/store"
)

// Score assesses a subject against the active catalog. With a database
// configured the assessment is persisted and a write failure is returned.
func (e *Engine) Score(ctx context.Context, subjectID string, c *model.Context) (model.Assessment, error) {
	snap := e.current()
	if c == nil {
		c = &model.Context{}
	}

	start := time.Now()
	a := snap.scorer.Score(subjectID, c)
	e.metrics.ObserveAssessment(a, time.Since(start))

	if e.store != nil {
		if _, err := e.store.SaveAssessment(ctx, a); err != nil {
			return model.Assessment{}, err
		}
	}

	e.record(snap, audit.ScoreEntry(a))
	if ev, ok := alert.FromAssessment(a); ok && snap.dispatcher != nil {
		ev.PolicyHash = snap.policyHash
		snap.dispatcher.Dispatch(ev)
	}
	return a, nil
}

// Suggest ranks the patterns a post-mortem most likely describes.
func (e *Engine) Suggest(ctx context.Context, pm model.PostMortem) ([]model.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := e.current()

	start := time.Now()
	suggestions := snap.mapper.Suggest(pm)
	e.metrics.ObserveSuggest(len(suggestions), time.Since(start))

	e.record(snap, audit.SuggestEntry(pm, suggestions))
	return suggestions, nil
}

// EvaluateBypass decides the governance pathway for an issue.
func (e *Engine) EvaluateBypass(ctx context.Context, issue model.Issue) (model.BypassResult, error) {
	snap := e.current()

	start := time.Now()
	r, err := snap.bypass.Evaluate(ctx, issue)
	if err != nil {
		return model.BypassResult{}, err
	}
	e.metrics.ObserveBypass(r, time.Since(start))

	e.record(snap, audit.BypassEntry(issue, r))
	if ev, ok := alert.FromBypass(issue, r); ok && snap.dispatcher != nil {
		ev.PolicyHash = snap.policyHash
		snap.dispatcher.Dispatch(ev)
	}
	return r, nil
}

// Patterns returns the active patterns in catalog order.
func (e *Engine) Patterns() []model.Pattern {
	return e.current().catalog.Patterns()
}

// Pattern returns one active pattern by id.
func (e *Engine) Pattern(id string) (model.Pattern, bool) {
	return e.current().catalog.GetByID(id)
}

// RecordOutcome stores the outcome of a change for future history adjustments.
func (e *Engine) RecordOutcome(ctx context.Context, o store.Outcome) (string, error) {
	if e.store == nil {
		return "", ErrNoStore
	}
	return e.store.RecordOutcome(ctx, o)
}

// Assessments lists stored assessments of a subject, newest first.
func (e *Engine) Assessments(ctx context.Context, subjectID string, limit int) ([]model.Assessment, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.ListAssessments(ctx, subjectID, limit)
}

// ImportPatterns validates patterns and writes them to the database, then
// reloads so the new set takes effect. The write is rejected when the
// resulting stored set would be invalid or have no active patterns.
func (e *Engine) ImportPatterns(ctx context.Context, patterns []model.Pattern) error {
	if e.store == nil {
		return ErrNoStore
	}
	if _, err := catalog.Load(patterns); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	err := e.store.UpdatePatterns(ctx, func(stored []model.Pattern) ([]model.Pattern, error) {
		if err := checkActiveSet(store.Merge(stored, patterns)); err != nil {
			return nil, fmt.Errorf("import: %w", err)
		}
		return patterns, nil
	})
	if err != nil {
		return err
	}
	return e.Reload(ctx)
}

// SetPatternStatus changes a stored pattern's lifecycle status and reloads.
// Retiring the last active pattern is refused with ErrNoPatterns and leaves
// the database untouched.
func (e *Engine) SetPatternStatus(ctx context.Context, id string, status model.Status) error {
	if e.store == nil {
		return ErrNoStore
	}
	err := e.store.UpdatePatterns(ctx, func(stored []model.Pattern) ([]model.Pattern, error) {
		p, err := store.WithStatus(stored, id, status)
		if err != nil {
			return nil, err
		}
		changed := []model.Pattern{p}
		if err := checkActiveSet(store.Merge(stored, changed)); err != nil {
			return nil, fmt.Errorf("set status of %s: %w", id, err)
		}
		return changed, nil
	})
	if err != nil {
		return err
	}
	return e.Reload(ctx)
}

// checkActiveSet applies the same rules load does to a candidate pattern set.
func checkActiveSet(patterns []model.Pattern) error {
	cat, err := catalog.Load(patterns)
	if err != nil {
		return err
	}
	if cat.Len() == 0 {
		return ErrNoPatterns
	}
	return nil
}

func (e *Engine) record(snap *snapshot, entry audit.Entry) {
	if e.auditLog == nil {
		return
	}
	entry.PolicyHash = snap.policyHash
	entry.CatalogHash = snap.catalog.Hash()
	if err := e.auditLog.Record(entry); err != nil {
		e.logger.Warn("audit record failed",
			zap.String("operation", entry.Operation),
			zap.String("subject", entry.Subject.ID),
			zap.Error(err))
	}
}
