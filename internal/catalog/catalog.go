// Package catalog holds immutable snapshots of the active pattern set.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/leoprotocol/leoscore/internal/model"
)

// Catalog is an immutable snapshot of active patterns in load order.
// Replacing the pattern set means building a new Catalog.
type Catalog struct {
	patterns []model.Pattern
	byID     map[string]int
	hash     string
}

// Load validates every record and returns a snapshot of the active ones.
// Any malformed or duplicate record fails the whole load.
func Load(patterns []model.Pattern) (*Catalog, error) {
	seen := make(map[string]bool, len(patterns))
	for i, p := range patterns {
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("record %d: %w: duplicate id %q", i, ErrInvalidPattern, p.ID)
		}
		seen[p.ID] = true
	}

	c := &Catalog{byID: make(map[string]int)}
	for _, p := range patterns {
		if !p.IsActive() {
			continue
		}
		c.byID[p.ID] = len(c.patterns)
		c.patterns = append(c.patterns, clonePattern(p))
	}

	data, err := json.Marshal(c.patterns)
	if err != nil {
		return nil, fmt.Errorf("hash catalog: %w", err)
	}
	sum := sha256.Sum256(data)
	c.hash = "sha256:" + hex.EncodeToString(sum[:])
	return c, nil
}

// Hash identifies the active pattern set. Equal sets have equal hashes.
func (c *Catalog) Hash() string {
	return c.hash
}

// Default returns a snapshot of the built-in pattern set.
func Default() *Catalog {
	c, err := Load(DefaultPatterns())
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in patterns are invalid: %v", err))
	}
	return c
}

// Len returns the number of active patterns.
func (c *Catalog) Len() int {
	return len(c.patterns)
}

// Patterns returns a copy of all active patterns in load order.
func (c *Catalog) Patterns() []model.Pattern {
	out := make([]model.Pattern, len(c.patterns))
	for i, p := range c.patterns {
		out[i] = clonePattern(p)
	}
	return out
}

// GetByID returns the pattern with the given id. The bool is false if not found.
func (c *Catalog) GetByID(id string) (model.Pattern, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Pattern{}, false
	}
	return clonePattern(c.patterns[i]), true
}

// ByCategory returns the patterns of a category in load order.
func (c *Catalog) ByCategory(category model.Category) []model.Pattern {
	var out []model.Pattern
	for _, p := range c.patterns {
		if p.Category == category {
			out = append(out, clonePattern(p))
		}
	}
	return out
}

// BySeverity returns the patterns whose severity is one of severities, in load order.
func (c *Catalog) BySeverity(severities ...model.Severity) []model.Pattern {
	want := make(map[model.Severity]bool, len(severities))
	for _, s := range severities {
		want[s] = true
	}
	var out []model.Pattern
	for _, p := range c.patterns {
		if want[p.Severity] {
			out = append(out, clonePattern(p))
		}
	}
	return out
}

// Each calls fn for every active pattern without copying.
// fn must not retain or modify the pattern.
func (c *Catalog) Each(fn func(p *model.Pattern)) {
	for i := range c.patterns {
		fn(&c.patterns[i])
	}
}

func clonePattern(p model.Pattern) model.Pattern {
	if p.DetectionSignals != nil {
		p.DetectionSignals = append([]string(nil), p.DetectionSignals...)
	}
	if p.PreventionMeasures != nil {
		p.PreventionMeasures = append([]model.PreventionMeasure(nil), p.PreventionMeasures...)
	}
	return p
}
