// Package signal decides whether a pattern's detection signals fire
// against structured facts or free text.
package signal

import (
	"strings"

	"github.com/leoprotocol/leoscore/internal/model"
)

// minWordLen is the exclusive lower bound on word length for text matching.
const minWordLen = 3

// Matcher evaluates signals against a Context using a rule table.
type Matcher struct {
	rules []Rule
}

// NewMatcher creates a Matcher from rules. A nil slice uses DefaultRules.
func NewMatcher(rules []Rule) *Matcher {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Matcher{rules: rules}
}

// Fires reports whether signal fires against c.
//
// Structured rules are tried first. A signal that no structured rule fired
// falls back to the open flag map: it fires when a true flag's key appears
// in the signal text (case-insensitive).
func (m *Matcher) Fires(signal string, c *model.Context) bool {
	if c == nil {
		return false
	}
	lower := strings.ToLower(signal)

	for _, r := range m.rules {
		if r.Signal(lower) && r.Context(c) {
			return true
		}
	}

	for key, on := range c.Flags {
		if !on || key == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(key)) {
			return true
		}
	}
	return false
}

// Matched returns the subset of signals that fire, preserving order.
func (m *Matcher) Matched(signals []string, c *model.Context) []string {
	var out []string
	for _, s := range signals {
		if m.Fires(s, c) {
			out = append(out, s)
		}
	}
	return out
}

// Words returns the lowercased words of signal longer than three characters.
func Words(signal string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(signal)) {
		if len(w) > minWordLen {
			words = append(words, w)
		}
	}
	return words
}

// MatchText reports whether signal matches the lowercased target text.
// At least min(2, wordCount) of the signal's words must occur as substrings.
// A signal without qualifying words never matches.
func MatchText(signal, lowerText string) bool {
	words := Words(signal)
	if len(words) == 0 {
		return false
	}
	required := min(2, len(words))

	hits := 0
	for _, w := range words {
		if strings.Contains(lowerText, w) {
			hits++
			if hits >= required {
				return true
			}
		}
	}
	return false
}
