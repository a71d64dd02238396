// Package alert posts webhook notifications for risky engine decisions.
package alert

import (
	"time"

	"github.com/leoprotocol/leoscore/internal/model"
)

// Event kinds a webhook can subscribe to.
const (
	KindCritical = "critical"
	KindHigh     = "high"
	KindFullSD   = "full_sd"
	KindBlocked  = "blocked"
)

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["critical", "high", "full_sd", "blocked"]
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp  string   `json:"timestamp"`
	Kind       string   `json:"kind"`
	Operation  string   `json:"operation"`
	SubjectID  string   `json:"subject_id"`
	Outcome    string   `json:"outcome"`
	Confidence int      `json:"confidence"`
	Reason     string   `json:"reason,omitempty"`
	Patterns   []string `json:"patterns,omitempty"`
	Blocked    bool     `json:"blocked,omitempty"`
	PolicyHash string   `json:"policy_hash,omitempty"`
}

// FromAssessment builds an event for critical and high assessments.
// The bool is false when the level does not warrant an alert.
func FromAssessment(a model.Assessment) (AlertEvent, bool) {
	var kind string
	switch a.RiskLevel {
	case model.RiskCritical:
		kind = KindCritical
	case model.RiskHigh:
		kind = KindHigh
	default:
		return AlertEvent{}, false
	}

	e := AlertEvent{
		Timestamp: stamp(a.AssessedAt),
		Kind:      kind,
		Operation: "score",
		SubjectID: a.SubjectID,
		Outcome:   string(a.RiskLevel),
		Patterns:  a.HighRiskPatterns,
	}
	for _, m := range a.Matches {
		e.Confidence = max(e.Confidence, m.Confidence)
	}
	if len(a.Recommendations) > 0 {
		e.Reason = a.Recommendations[0]
	}
	return e, true
}

// FromBypass builds an event for evaluations that require the full process.
func FromBypass(issue model.Issue, r model.BypassResult) (AlertEvent, bool) {
	if r.Pathway != model.PathwayFullSD {
		return AlertEvent{}, false
	}
	return AlertEvent{
		Timestamp:  stamp(time.Now()),
		Kind:       KindFullSD,
		Operation:  "bypass",
		SubjectID:  issue.ID,
		Outcome:    string(r.Pathway),
		Confidence: r.Confidence,
		Reason:     r.Reason,
		Blocked:    r.Blocked,
	}, true
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
