package alert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event AlertEvent) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event AlertEvent) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event AlertEvent) ([]byte, error) {
	title := fmt.Sprintf("leoscore: %s %s", event.Operation, event.Outcome)
	if event.Blocked {
		title += " (blocked)"
	}

	patterns := strings.Join(event.Patterns, ", ")
	if patterns == "" {
		patterns = "-"
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": title,
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Subject:* %s", event.SubjectID)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Confidence:* %d", event.Confidence)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Patterns:* %s", patterns)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Reason:* %s", event.Reason)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event AlertEvent) ([]byte, error) {
	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("leoscore %s %s: %s", event.Operation, event.Outcome, event.SubjectID),
			"severity": severityFor(event),
			"source":   "leoscore",
			"custom_details": map[string]any{
				"subject_id": event.SubjectID,
				"kind":       event.Kind,
				"confidence": event.Confidence,
				"patterns":   event.Patterns,
				"reason":     event.Reason,
			},
		},
	}
	return json.Marshal(payload)
}

func severityFor(event AlertEvent) string {
	switch {
	case event.Kind == KindCritical || event.Blocked:
		return "critical"
	case event.Kind == KindHigh:
		return "error"
	case event.Kind == KindFullSD:
		return "warning"
	default:
		return "info"
	}
}
