package catalog

import "github.com/leoprotocol/leoscore/internal/model"

// DefaultPatterns returns the built-in venture anti-pattern catalog.
func DefaultPatterns() []model.Pattern {
	return []model.Pattern{
		{
			ID:           "AP-FIN-001",
			Category:     model.CategoryFinancial,
			Severity:     model.SeverityCritical,
			Name:         "Runway exhaustion",
			Description:  "Cash runs out before the venture reaches a financing or revenue milestone.",
			ImpactWeight: 95,
			DetectionSignals: []string{
				"Less than 6 months runway",
				"Infrastructure costs exceed 30% of revenue",
				"No committed follow-on funding",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Maintain a rolling 18-month cash plan with monthly burn review", Effectiveness: 85, Effort: model.EffortMedium},
				{Measure: "Set a hard trigger for cost reduction at 9 months runway", Effectiveness: 75, Effort: model.EffortLow},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-TECH-001",
			Category:     model.CategoryTechnical,
			Severity:     model.SeverityHigh,
			Name:         "Untested core",
			Description:  "Core business logic ships without automated verification.",
			ImpactWeight: 70,
			DetectionSignals: []string{
				"Test coverage below 50%",
				"Production hotfixes deployed without tests",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Gate merges on coverage for core packages", Effectiveness: 80, Effort: model.EffortMedium},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-RES-001",
			Category:     model.CategoryResource,
			Severity:     model.SeverityHigh,
			Name:         "Single point of knowledge",
			Description:  "Critical systems are understood by one person only.",
			ImpactWeight: 75,
			DetectionSignals: []string{
				"Bus factor of 1 on critical systems",
				"Undocumented deployment process",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Pair rotation on critical systems every sprint", Effectiveness: 70, Effort: model.EffortLow},
				{Measure: "Write runbooks for every deployable unit", Effectiveness: 65, Effort: model.EffortMedium},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-PROC-001",
			Category:     model.CategoryProcess,
			Severity:     model.SeverityMedium,
			Name:         "Feature bloat",
			Description:  "Effort goes into features that customers do not use.",
			ImpactWeight: 50,
			DetectionSignals: []string{
				"Multiple features with <5% usage",
				"Roadmap driven by competitor feature lists",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Retire features below a usage threshold each quarter", Effectiveness: 60, Effort: model.EffortLow},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-RES-002",
			Category:     model.CategoryResource,
			Severity:     model.SeverityHigh,
			Name:         "Team burnout",
			Description:  "Sustained overwork erodes quality and retention.",
			ImpactWeight: 65,
			DetectionSignals: []string{
				"Team working more than 60 hours per week",
				"Rising unplanned attrition",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Cap on-call load and track weekly hours", Effectiveness: 70, Effort: model.EffortLow},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-MKT-001",
			Category:     model.CategoryMarket,
			Severity:     model.SeverityHigh,
			Name:         "Premature scaling",
			Description:  "Spending on growth before product-market fit is established.",
			ImpactWeight: 80,
			DetectionSignals: []string{
				"Scaling spend before product market fit",
				"Customer acquisition cost exceeds lifetime value",
				"Infrastructure costs exceed 30% of revenue",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Tie growth spend to retention cohort milestones", Effectiveness: 75, Effort: model.EffortMedium},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-COMM-001",
			Category:     model.CategoryCommunication,
			Severity:     model.SeverityMedium,
			Name:         "Silent stakeholders",
			Description:  "Decisions are made without the people who carry their consequences.",
			ImpactWeight: 45,
			DetectionSignals: []string{
				"Stakeholder review skipped for scope changes",
				"Requirements changed without notification",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Require a named approver for scope changes", Effectiveness: 65, Effort: model.EffortLow},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-TECH-002",
			Category:     model.CategoryTechnical,
			Severity:     model.SeverityCritical,
			Name:         "Database connection exhaustion",
			Description:  "Connection pools are undersized or leak under load.",
			ImpactWeight: 85,
			DetectionSignals: []string{
				"Database connection pooling exhausted",
				"Connection timeouts under peak load",
				"Missing connection limits per service",
			},
			PreventionMeasures: []model.PreventionMeasure{
				{Measure: "Load test connection pool limits before each release", Effectiveness: 80, Effort: model.EffortMedium},
			},
			Status: model.StatusActive,
		},
		{
			ID:           "AP-PROC-002",
			Category:     model.CategoryProcess,
			Severity:     model.SeverityLow,
			Name:         "Ceremony drift",
			Description:  "Process steps are skipped silently instead of being retired explicitly.",
			ImpactWeight: 30,
			DetectionSignals: []string{
				"Retrospective actions left unassigned",
			},
			Status: model.StatusDeprecated,
		},
	}
}
