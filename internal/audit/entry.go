package audit

import "github.com/leoprotocol/leoscore/internal/model"

// Operations recorded in the audit log.
const (
	OpScore   = "score"
	OpSuggest = "suggest"
	OpBypass  = "bypass"
)

// Subject identifies what was evaluated.
type Subject struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Entry is one line in the hash-chained JSONL audit log.
// All fields are structs or slices (no map[string]any) so json.Marshal
// output is deterministic and the chain hash reproducible.
type Entry struct {
	Timestamp   string   `json:"ts"`
	Operation   string   `json:"operation"`
	Subject     Subject  `json:"subject"`
	Outcome     string   `json:"outcome"`
	Confidence  int      `json:"confidence"`
	Patterns    []string `json:"patterns,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Blocked     bool     `json:"blocked,omitempty"`
	Degraded    bool     `json:"degraded,omitempty"`
	PolicyHash  string   `json:"policy_hash"`
	CatalogHash string   `json:"catalog_hash"`
	PrevHash    string   `json:"prev_hash"`
}

// ScoreEntry describes an assessment. Outcome is the risk level and
// Confidence the highest match confidence.
func ScoreEntry(a model.Assessment) Entry {
	e := Entry{
		Timestamp: a.AssessedAt.UTC().Format(TimestampFormat),
		Operation: OpScore,
		Subject:   Subject{Kind: "venture", ID: a.SubjectID},
		Outcome:   string(a.RiskLevel),
	}
	for _, m := range a.Matches {
		e.Patterns = append(e.Patterns, m.PatternID)
		e.Confidence = max(e.Confidence, m.Confidence)
	}
	if a.AssessedAt.IsZero() {
		e.Timestamp = ""
	}
	return e
}

// SuggestEntry describes a post-mortem mapping. Outcome is the top
// suggested pattern, or "none".
func SuggestEntry(pm model.PostMortem, suggestions []model.Match) Entry {
	e := Entry{
		Operation: OpSuggest,
		Subject:   Subject{Kind: "postmortem", ID: pm.ID},
		Outcome:   "none",
	}
	for i, m := range suggestions {
		if i == 0 {
			e.Outcome = m.PatternID
			e.Confidence = m.Confidence
		}
		e.Patterns = append(e.Patterns, m.PatternID)
	}
	return e
}

// BypassEntry describes a bypass decision. Outcome is the pathway.
func BypassEntry(issue model.Issue, r model.BypassResult) Entry {
	return Entry{
		Operation:  OpBypass,
		Subject:    Subject{Kind: "issue", ID: issue.ID},
		Outcome:    string(r.Pathway),
		Confidence: r.Confidence,
		Reason:     r.Reason,
		Blocked:    r.Blocked,
		Degraded:   r.Degraded,
	}
}
