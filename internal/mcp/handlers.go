package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/leoprotocol/leoscore/internal/bypass"
	"github.com/leoprotocol/leoscore/internal/model"
)

// --- Input/Output types ---

// ScoreInput defines parameters for the leo_score tool.
type ScoreInput struct {
	SubjectID string        `json:"subject_id" jsonschema:"identifier of the venture being scored"`
	Context   model.Context `json:"context" jsonschema:"known facts about the venture; omit unknown facts"`
}

// ScoreOutput is the assessment returned by leo_score.
type ScoreOutput struct {
	SubjectID        string        `json:"subject_id"`
	RiskLevel        string        `json:"risk_level"`
	TotalImpact      int           `json:"total_impact"`
	AverageImpact    float64       `json:"average_impact"`
	Matches          []model.Match `json:"matches"`
	HighRiskPatterns []string      `json:"high_risk_patterns"`
	Recommendations  []string      `json:"recommendations"`
	AssessedAt       string        `json:"assessed_at"`
}

// SuggestInput defines parameters for the leo_suggest tool.
type SuggestInput struct {
	ID      string   `json:"id,omitempty" jsonschema:"post-mortem identifier"`
	Summary string   `json:"summary" jsonschema:"incident summary"`
	Whys    []string `json:"whys,omitempty" jsonschema:"five-whys answers in order"`
}

// SuggestOutput lists ranked pattern suggestions.
type SuggestOutput struct {
	Suggestions []model.Match `json:"suggestions"`
}

// BypassInput defines parameters for the leo_bypass tool.
type BypassInput struct {
	ID               string   `json:"id,omitempty" jsonschema:"issue identifier"`
	Title            string   `json:"title" jsonschema:"issue title"`
	Description      string   `json:"description,omitempty" jsonschema:"issue description"`
	EstimatedLOC     int      `json:"estimated_loc" jsonschema:"estimated lines of code changed"`
	Severity         string   `json:"severity,omitempty" jsonschema:"low, medium, high or critical"`
	AffectedFiles    []string `json:"affected_files,omitempty" jsonschema:"paths of files the change touches"`
	Type             string   `json:"type,omitempty" jsonschema:"typo, documentation, bug, feature, refactor or chore"`
	HasSchemaChanges bool     `json:"has_schema_changes,omitempty" jsonschema:"change alters a database schema"`
	HasAuthChanges   bool     `json:"has_auth_changes,omitempty" jsonschema:"change alters authentication or authorization"`
}

// PatternsInput filters the leo_patterns tool. Empty fields match everything.
type PatternsInput struct {
	ID       string `json:"id,omitempty" jsonschema:"pattern id"`
	Category string `json:"category,omitempty" jsonschema:"technical, process, communication, resource, market or financial"`
	Severity string `json:"severity,omitempty" jsonschema:"low, medium, high or critical"`
}

// PatternsOutput lists active patterns.
type PatternsOutput struct {
	Patterns    []model.Pattern `json:"patterns"`
	CatalogHash string          `json:"catalog_hash"`
}

// --- Handlers ---

func (s *Server) handleScore(ctx context.Context, req *mcpsdk.CallToolRequest, input ScoreInput) (*mcpsdk.CallToolResult, ScoreOutput, error) {
	if input.SubjectID == "" {
		return nil, ScoreOutput{}, errors.New("subject_id is required")
	}
	sc := input.Context
	a, err := s.engine.Score(ctx, input.SubjectID, &sc)
	if err != nil {
		return nil, ScoreOutput{}, err
	}
	return nil, ScoreOutput{
		SubjectID:        a.SubjectID,
		RiskLevel:        string(a.RiskLevel),
		TotalImpact:      a.TotalImpact,
		AverageImpact:    a.AverageImpact,
		Matches:          a.Matches,
		HighRiskPatterns: a.HighRiskPatterns,
		Recommendations:  a.Recommendations,
		AssessedAt:       a.AssessedAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *Server) handleSuggest(ctx context.Context, req *mcpsdk.CallToolRequest, input SuggestInput) (*mcpsdk.CallToolResult, SuggestOutput, error) {
	if input.Summary == "" && len(input.Whys) == 0 {
		return nil, SuggestOutput{}, errors.New("summary or whys is required")
	}
	suggestions, err := s.engine.Suggest(ctx, model.PostMortem{
		ID:      input.ID,
		Summary: input.Summary,
		Whys:    input.Whys,
	})
	if err != nil {
		return nil, SuggestOutput{}, err
	}
	return nil, SuggestOutput{Suggestions: suggestions}, nil
}

func (s *Server) handleBypass(ctx context.Context, req *mcpsdk.CallToolRequest, input BypassInput) (*mcpsdk.CallToolResult, model.BypassResult, error) {
	r, err := s.engine.EvaluateBypass(ctx, model.Issue{
		ID:               input.ID,
		Title:            input.Title,
		Description:      input.Description,
		EstimatedLOC:     input.EstimatedLOC,
		Severity:         model.Severity(input.Severity),
		AffectedFiles:    input.AffectedFiles,
		Type:             model.ChangeType(input.Type),
		HasSchemaChanges: input.HasSchemaChanges,
		HasAuthChanges:   input.HasAuthChanges,
	})
	if err != nil {
		if errors.Is(err, bypass.ErrInvalidIssue) {
			return &mcpsdk.CallToolResult{IsError: true}, model.BypassResult{Reason: err.Error()}, nil
		}
		return nil, model.BypassResult{}, err
	}
	return nil, r, nil
}

func (s *Server) handlePatterns(ctx context.Context, req *mcpsdk.CallToolRequest, input PatternsInput) (*mcpsdk.CallToolResult, PatternsOutput, error) {
	out := PatternsOutput{
		Patterns:    []model.Pattern{},
		CatalogHash: s.engine.CatalogHash(),
	}
	if input.ID != "" {
		p, ok := s.engine.Pattern(input.ID)
		if !ok {
			return nil, PatternsOutput{}, fmt.Errorf("pattern %q not found", input.ID)
		}
		out.Patterns = append(out.Patterns, p)
		return nil, out, nil
	}
	for _, p := range s.engine.Patterns() {
		if input.Category != "" && string(p.Category) != input.Category {
			continue
		}
		if input.Severity != "" && string(p.Severity) != input.Severity {
			continue
		}
		out.Patterns = append(out.Patterns, p)
	}
	return nil, out, nil
}
