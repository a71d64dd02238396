package policydiff

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	if !r.HasChanges {
		return fmt.Sprintf("Diff: %s → %s\n\nNo changes detected.\n", r.OldPath, r.NewPath)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Diff: %s → %s\n", r.OldPath, r.NewPath)

	for _, section := range []struct{ title, prefix string }{
		{"Scoring", "scoring."},
		{"Mapping", "mapping."},
		{"Bypass", "bypass."},
	} {
		changes := filterChanges(r.Changes, section.prefix)
		if len(changes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n  %s:\n", section.title)
		for _, c := range changes {
			name := strings.TrimPrefix(c.Field, section.prefix)
			fmt.Fprintf(&b, "    %-24s %s → %s", name+":", c.Old, c.New)
			if c.Comment != "" {
				fmt.Fprintf(&b, "  (%s)", c.Comment)
			}
			b.WriteString("\n")
		}
	}

	writeItems(&b, "Alerts", r.AlertChanges)
	writeItems(&b, "Patterns", r.PatternChanges)

	return b.String()
}

func writeItems(b *strings.Builder, title string, items []ItemChange) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "\n  %s:\n", title)
	for _, ic := range items {
		switch ic.Type {
		case "added":
			fmt.Fprintf(b, "    + %s\n", ic.Item)
		case "removed":
			fmt.Fprintf(b, "    - %s\n", ic.Item)
		case "changed":
			fmt.Fprintf(b, "    ~ %s\n", ic.Item)
		}
	}
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}

func filterChanges(changes []Change, prefix string) []Change {
	var out []Change
	for _, c := range changes {
		if strings.HasPrefix(c.Field, prefix) {
			out = append(out, c)
		}
	}
	return out
}
