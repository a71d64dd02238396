package scenario

import "github.com/leoprotocol/leoscore/internal/model"

// Case kinds.
const (
	KindScore   = "score"
	KindSuggest = "suggest"
	KindBypass  = "bypass"
)

// ScoreCase scores one subject.
type ScoreCase struct {
	SubjectID string        `yaml:"subject_id"`
	Context   model.Context `yaml:"context"`
}

// Case is one assertion within a scenario. Exactly one of Score, Suggest
// and Bypass is set. Expect is a risk level for score, the top pattern id
// (or "none") for suggest, and a pathway for bypass.
type Case struct {
	Score   *ScoreCase        `yaml:"score,omitempty"`
	Suggest *model.PostMortem `yaml:"suggest,omitempty"`
	Bypass  *model.Issue      `yaml:"bypass,omitempty"`
	Expect  string            `yaml:"expect"`
}

// Kind returns which operation the case exercises, or "" if it names
// none or more than one.
func (c Case) Kind() string {
	kind, n := "", 0
	if c.Score != nil {
		kind, n = KindScore, n+1
	}
	if c.Suggest != nil {
		kind, n = KindSuggest, n+1
	}
	if c.Bypass != nil {
		kind, n = KindBypass, n+1
	}
	if n != 1 {
		return ""
	}
	return kind
}

// Scenario is a named collection of assertion cases.
type Scenario struct {
	Name  string `yaml:"name"`
	Cases []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Kind     string `json:"kind"`
	Subject  string `json:"subject"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
