package model

import "time"

// Severity is the ordinal weight of a pattern's failure mode.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityRank maps severity to a comparable integer.
var SeverityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// IsValid returns true if the severity is a known value.
func (s Severity) IsValid() bool {
	_, ok := SeverityRank[s]
	return ok
}

// Category groups patterns by the kind of failure they describe.
type Category string

const (
	CategoryTechnical     Category = "technical"
	CategoryProcess       Category = "process"
	CategoryCommunication Category = "communication"
	CategoryResource      Category = "resource"
	CategoryMarket        Category = "market"
	CategoryFinancial     Category = "financial"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryTechnical,
	CategoryProcess,
	CategoryCommunication,
	CategoryResource,
	CategoryMarket,
	CategoryFinancial,
}

// Status is the lifecycle state of a pattern. Only active patterns are scored.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
	StatusArchived   Status = "archived"
)

// Effort is the implementation cost tier of a prevention measure.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// PreventionMeasure is one mitigation attached to a pattern.
// The first measure in a pattern's list has the highest priority.
type PreventionMeasure struct {
	Measure       string `json:"measure" yaml:"measure"`
	Effectiveness int    `json:"effectiveness" yaml:"effectiveness"`
	Effort        Effort `json:"effort" yaml:"effort"`
}

// Pattern is a named, weighted rule describing a known failure mode.
type Pattern struct {
	ID                 string              `json:"id" yaml:"id"`
	Category           Category            `json:"category" yaml:"category"`
	Severity           Severity            `json:"severity" yaml:"severity"`
	Name               string              `json:"name" yaml:"name"`
	Description        string              `json:"description" yaml:"description"`
	ImpactWeight       float64             `json:"impact_weight" yaml:"impact_weight"`
	DetectionSignals   []string            `json:"detection_signals" yaml:"detection_signals"`
	PreventionMeasures []PreventionMeasure `json:"prevention_measures" yaml:"prevention_measures"`
	Status             Status              `json:"status" yaml:"status"`
}

// IsActive reports whether the pattern participates in scoring.
func (p Pattern) IsActive() bool {
	return p.Status == StatusActive
}

// Context is the set of facts known about the subject being scored.
// Every field is optional; a nil fact never matches a signal.
type Context struct {
	InfrastructureCostRatio *float64        `json:"infrastructure_cost_ratio,omitempty" yaml:"infrastructure_cost_ratio,omitempty"`
	LowUsageFeatureCount    *int            `json:"low_usage_feature_count,omitempty" yaml:"low_usage_feature_count,omitempty"`
	RunwayMonths            *float64        `json:"runway_months,omitempty" yaml:"runway_months,omitempty"`
	BusFactor               *int            `json:"bus_factor,omitempty" yaml:"bus_factor,omitempty"`
	TestCoverage            *float64        `json:"test_coverage,omitempty" yaml:"test_coverage,omitempty"`
	AvgWorkingHours         *float64        `json:"avg_working_hours,omitempty" yaml:"avg_working_hours,omitempty"`
	Flags                   map[string]bool `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Float returns a pointer to v, for building contexts in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building contexts in code.
func Int(v int) *int { return &v }

// Match is the result of evaluating one pattern against one subject.
type Match struct {
	PatternID      string   `json:"pattern_id"`
	PatternName    string   `json:"pattern_name"`
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	MatchedSignals []string `json:"matched_signals"`
	Confidence     int      `json:"confidence"`
	ImpactScore    int      `json:"impact_score"`
}

// Assessment is the aggregate result of scoring one subject.
type Assessment struct {
	SubjectID        string    `json:"subject_id"`
	Matches          []Match   `json:"matches"`
	TotalImpact      int       `json:"total_impact"`
	AverageImpact    float64   `json:"average_impact"`
	RiskLevel        RiskLevel `json:"risk_level"`
	HighRiskPatterns []string  `json:"high_risk_patterns"`
	Recommendations  []string  `json:"recommendations"`
	AssessedAt       time.Time `json:"assessed_at"`
}

// PostMortem is a free-text incident record mapped against the catalog.
// Whys holds the answers of a five-whys analysis in order.
type PostMortem struct {
	ID      string   `json:"id" yaml:"id"`
	Summary string   `json:"summary" yaml:"summary"`
	Whys    []string `json:"whys" yaml:"whys"`
}
