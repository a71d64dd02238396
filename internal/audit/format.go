package audit

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Subject: %s | No entries found.\n", result.SubjectID)
	}

	var b strings.Builder

	first := formatDateTime(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	fmt.Fprintf(&b, "Subject: %s | %s–%s UTC\n", result.SubjectID, first, last)
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		detail := e.Reason
		if detail == "" {
			detail = strings.Join(e.Patterns, ",")
		}

		tag := ""
		if e.Blocked {
			tag += "  [blocked]"
		}
		if e.Degraded {
			tag += "  [degraded]"
		}

		fmt.Fprintf(&b, "%-10s %-8s %-12s %3d%%  %-40s%s\n",
			formatTimeOnly(e.Timestamp),
			strings.ToUpper(e.Operation),
			truncate(e.Outcome, 12),
			e.Confidence,
			truncate(detail, 40),
			tag)
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	var parts []string
	if n := sumCounts(s.Levels); n > 0 {
		parts = append(parts, fmt.Sprintf("%d score (max %s)", n, s.MaxLevel))
	}
	if n := sumCounts(s.Pathways); n > 0 {
		parts = append(parts, fmt.Sprintf("%d bypass (%s)", n, formatCounts(s.Pathways)))
	}
	if s.Suggestions > 0 {
		parts = append(parts, fmt.Sprintf("%d suggest", s.Suggestions))
	}

	flags := ""
	if s.BlockedCount > 0 {
		flags += fmt.Sprintf(" | %d blocked", s.BlockedCount)
	}
	if s.DegradedCount > 0 {
		flags += fmt.Sprintf(" | %d degraded", s.DegradedCount)
	}
	return fmt.Sprintf("Summary: %s%s\n", strings.Join(parts, ", "), flags)
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// formatCounts renders "KEY n" pairs sorted by key.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d %s", m[k], k)
	}
	return strings.Join(parts, ", ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
