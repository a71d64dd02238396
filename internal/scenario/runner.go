// Package scenario runs YAML assertion files against the scoring engine.
package scenario

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leoprotocol/leoscore/internal/model"
)

// Evaluator is the subset of the engine a scenario exercises.
type Evaluator interface {
	Score(ctx context.Context, subjectID string, c *model.Context) (model.Assessment, error)
	Suggest(ctx context.Context, pm model.PostMortem) ([]model.Match, error)
	EvaluateBypass(ctx context.Context, issue model.Issue) (model.BypassResult, error)
}

// Run evaluates all cases in a scenario. Cases are independent; an
// evaluation error fails its case without stopping the run.
func Run(ctx context.Context, s *Scenario, ev Evaluator) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		cr := runCase(ctx, c, ev)
		cr.Index = i + 1
		cr.Expected = c.Expect

		if cr.Kind != "" && strings.EqualFold(cr.Actual, cr.Expected) {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

func runCase(ctx context.Context, c Case, ev Evaluator) CaseResult {
	cr := CaseResult{Kind: c.Kind()}

	switch cr.Kind {
	case KindScore:
		cr.Subject = c.Score.SubjectID
		sc := c.Score.Context
		a, err := ev.Score(ctx, c.Score.SubjectID, &sc)
		if err != nil {
			return errored(cr, err)
		}
		cr.Actual = string(a.RiskLevel)
		cr.Reason = fmt.Sprintf("%d match(es), average impact %.1f", len(a.Matches), a.AverageImpact)

	case KindSuggest:
		cr.Subject = c.Suggest.ID
		suggestions, err := ev.Suggest(ctx, *c.Suggest)
		if err != nil {
			return errored(cr, err)
		}
		cr.Actual = "none"
		if len(suggestions) > 0 {
			cr.Actual = suggestions[0].PatternID
			cr.Reason = fmt.Sprintf("confidence %d", suggestions[0].Confidence)
		}

	case KindBypass:
		cr.Subject = c.Bypass.ID
		if cr.Subject == "" {
			cr.Subject = c.Bypass.Title
		}
		r, err := ev.EvaluateBypass(ctx, *c.Bypass)
		if err != nil {
			return errored(cr, err)
		}
		cr.Actual = string(r.Pathway)
		cr.Reason = r.Reason

	default:
		cr.Actual = "invalid"
		cr.Reason = "case must set exactly one of score, suggest, bypass"
	}
	return cr
}

func errored(cr CaseResult, err error) CaseResult {
	cr.Actual = "error"
	cr.Reason = err.Error()
	return cr
}

// Load reads a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return &s, nil
}

// LoadAndRun loads a scenario YAML file and runs it.
func LoadAndRun(ctx context.Context, path string, ev Evaluator) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	result := Run(ctx, s, ev)
	result.File = path
	return result, nil
}
