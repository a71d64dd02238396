package model

// ChangeType is the declared kind of a proposed change.
type ChangeType string

const (
	ChangeTypo          ChangeType = "typo"
	ChangeDocumentation ChangeType = "documentation"
	ChangeBug           ChangeType = "bug"
	ChangeFeature       ChangeType = "feature"
	ChangeRefactor      ChangeType = "refactor"
	ChangeChore         ChangeType = "chore"
)

// Pathway is the governance route chosen for a change.
type Pathway string

const (
	PathwayMicroFix Pathway = "MICRO_FIX"
	PathwayQuickFix Pathway = "QUICK_FIX"
	PathwayFullSD   Pathway = "FULL_SD"
)

// Issue describes a proposed change submitted to the bypass classifier.
type Issue struct {
	ID               string     `json:"id,omitempty" yaml:"id,omitempty"`
	Title            string     `json:"title" yaml:"title"`
	Description      string     `json:"description" yaml:"description"`
	EstimatedLOC     int        `json:"estimated_loc" yaml:"estimated_loc"`
	Severity         Severity   `json:"severity" yaml:"severity"`
	AffectedFiles    []string   `json:"affected_files" yaml:"affected_files"`
	Type             ChangeType `json:"type" yaml:"type"`
	HasSchemaChanges bool       `json:"has_schema_changes" yaml:"has_schema_changes"`
	HasAuthChanges   bool       `json:"has_auth_changes" yaml:"has_auth_changes"`
}

// BypassResult is the outcome of a bypass evaluation.
// Blocked marks a non-negotiable blocker; Degraded marks a result computed
// without historical statistics because they could not be loaded.
type BypassResult struct {
	Bypass     bool    `json:"bypass"`
	Pathway    Pathway `json:"pathway"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason"`
	Blocked    bool    `json:"blocked,omitempty"`
	Degraded   bool    `json:"degraded,omitempty"`
}

// HistoricalStats summarizes past outcomes of bypassed changes.
type HistoricalStats struct {
	SuccessRate float64 `json:"success_rate"`
	SampleCount int     `json:"sample_count"`
}

// StatsQuery selects the history relevant to an issue.
type StatsQuery struct {
	Pathway    Pathway    `json:"pathway"`
	ChangeType ChangeType `json:"change_type"`
}
