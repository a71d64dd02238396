package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/leoprotocol/leoscore/internal/model"
)

// ReplayFilter selects the entries of one subject.
type ReplayFilter struct {
	SubjectID string
	Operation string    // empty = all operations
	From      time.Time // zero value = no lower bound
	To        time.Time // zero value = no upper bound
}

// ReplaySummary counts the outcomes of a replayed subject.
type ReplaySummary struct {
	Total          int             `json:"total"`
	Levels         map[string]int  `json:"levels,omitempty"`
	Pathways       map[string]int  `json:"pathways,omitempty"`
	Suggestions    int             `json:"suggestions"`
	BlockedCount   int             `json:"blocked_count"`
	DegradedCount  int             `json:"degraded_count"`
	MaxLevel       model.RiskLevel `json:"max_level,omitempty"`
	FirstTimestamp string          `json:"first_timestamp"`
	LastTimestamp  string          `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and summary for one subject.
type ReplayResult struct {
	SubjectID string        `json:"subject_id"`
	Entries   []Entry       `json:"entries"`
	Summary   ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
// Malformed lines are skipped.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{SubjectID: filter.SubjectID}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if !filter.matches(e) {
			continue
		}
		result.Entries = append(result.Entries, e)
		updateSummary(&result.Summary, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

func (f ReplayFilter) matches(e Entry) bool {
	if e.Subject.ID != f.SubjectID {
		return false
	}
	if f.Operation != "" && e.Operation != f.Operation {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func updateSummary(s *ReplaySummary, e Entry) {
	s.Total++

	switch e.Operation {
	case OpScore:
		if s.Levels == nil {
			s.Levels = make(map[string]int)
		}
		s.Levels[e.Outcome]++
		level := model.RiskLevel(e.Outcome)
		if s.MaxLevel == "" || model.RiskRank[level] > model.RiskRank[s.MaxLevel] {
			s.MaxLevel = level
		}
	case OpBypass:
		if s.Pathways == nil {
			s.Pathways = make(map[string]int)
		}
		s.Pathways[e.Outcome]++
	case OpSuggest:
		s.Suggestions++
	}
	if e.Blocked {
		s.BlockedCount++
	}
	if e.Degraded {
		s.DegradedCount++
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp
}
