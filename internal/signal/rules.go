package signal

import (
	"strings"

	"github.com/leoprotocol/leoscore/internal/model"
)

// Rule binds a recognized signal phrase to a context predicate.
// Signal receives the lowercased signal text.
type Rule struct {
	Name    string
	Signal  func(lower string) bool
	Context func(c *model.Context) bool
}

// DefaultRules returns the built-in structured-fact catalogue.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:   "infrastructure_costs",
			Signal: contains("infrastructure costs"),
			Context: func(c *model.Context) bool {
				return c.InfrastructureCostRatio != nil && *c.InfrastructureCostRatio > 0.3
			},
		},
		{
			Name:   "low_usage_features",
			Signal: contains("features with <5% usage"),
			Context: func(c *model.Context) bool {
				return c.LowUsageFeatureCount != nil && *c.LowUsageFeatureCount > 0
			},
		},
		{
			Name:   "short_runway",
			Signal: contains("months runway"),
			Context: func(c *model.Context) bool {
				return c.RunwayMonths != nil && *c.RunwayMonths < 6
			},
		},
		{
			Name:   "bus_factor",
			Signal: contains("bus factor"),
			Context: func(c *model.Context) bool {
				return c.BusFactor != nil && *c.BusFactor == 1
			},
		},
		{
			Name:   "test_coverage",
			Signal: contains("test coverage"),
			Context: func(c *model.Context) bool {
				return c.TestCoverage != nil && *c.TestCoverage < 50
			},
		},
		{
			Name:   "working_hours",
			Signal: containsAll("working", "hours"),
			Context: func(c *model.Context) bool {
				return c.AvgWorkingHours != nil && *c.AvgWorkingHours > 60
			},
		},
	}
}

func contains(phrase string) func(string) bool {
	return func(lower string) bool {
		return strings.Contains(lower, phrase)
	}
}

func containsAll(words ...string) func(string) bool {
	return func(lower string) bool {
		for _, w := range words {
			if !strings.Contains(lower, w) {
				return false
			}
		}
		return true
	}
}
