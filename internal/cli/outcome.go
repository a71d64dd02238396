package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/store"
)

var (
	outcomeIssue   string
	outcomePathway string
	outcomeType    string
	outcomeFailed  bool
	outcomeFormat  string
)

func init() {
	rootCmd.AddCommand(outcomeCmd)
	outcomeCmd.AddCommand(outcomeRecordCmd)
	outcomeCmd.AddCommand(outcomeStatsCmd)

	outcomeRecordCmd.Flags().StringVar(&outcomeIssue, "issue", "", "Issue identifier")
	outcomeRecordCmd.Flags().StringVar(&outcomePathway, "pathway", "", "Pathway the change took (MICRO_FIX|QUICK_FIX|FULL_SD)")
	outcomeRecordCmd.Flags().StringVar(&outcomeType, "type", "", "Change type")
	outcomeRecordCmd.Flags().BoolVar(&outcomeFailed, "failed", false, "The change failed (default: succeeded)")
	outcomeRecordCmd.MarkFlagRequired("pathway")

	outcomeStatsCmd.Flags().StringVar(&outcomePathway, "pathway", string(model.PathwayQuickFix), "Pathway to aggregate")
	outcomeStatsCmd.Flags().StringVar(&outcomeType, "type", "", "Change type to aggregate (default: all)")
	outcomeStatsCmd.Flags().StringVarP(&outcomeFormat, "format", "f", "text", "Output format (text|json)")
}

var outcomeCmd = &cobra.Command{
	Use:   "outcome",
	Short: "Record and inspect outcomes of bypassed changes",
	Long: "Outcomes feed the historical success rate used by the bypass\n" +
		"classifier's quick-fix confidence adjustment. Requires --db.",
}

var outcomeRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record whether a change succeeded",
	Args:  cobra.NoArgs,
	RunE:  runOutcomeRecord,
}

var outcomeStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the historical success rate for a pathway",
	Args:  cobra.NoArgs,
	RunE:  runOutcomeStats,
}

func parsePathway(s string) (model.Pathway, error) {
	switch p := model.Pathway(s); p {
	case model.PathwayMicroFix, model.PathwayQuickFix, model.PathwayFullSD:
		return p, nil
	default:
		return "", fmt.Errorf("unknown pathway %q (want MICRO_FIX|QUICK_FIX|FULL_SD)", s)
	}
}

func openStore() (*store.Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	return store.Open(dbPath)
}

func runOutcomeRecord(cmd *cobra.Command, args []string) error {
	pathway, err := parsePathway(outcomePathway)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	id, err := st.RecordOutcome(context.Background(), store.Outcome{
		IssueID:    outcomeIssue,
		Pathway:    pathway,
		ChangeType: model.ChangeType(outcomeType),
		Success:    !outcomeFailed,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Recorded outcome %s\n", id)
	return nil
}

func runOutcomeStats(cmd *cobra.Command, args []string) error {
	pathway, err := parsePathway(outcomePathway)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	q := model.StatsQuery{Pathway: pathway, ChangeType: model.ChangeType(outcomeType)}
	stats, err := st.LoadHistoricalStats(context.Background(), q)
	if err != nil {
		return err
	}

	if outcomeFormat == "json" {
		return printJSON(stats)
	}
	scope := "all change types"
	if outcomeType != "" {
		scope = outcomeType
	}
	fmt.Printf("%s (%s): %d sample(s), success rate %.0f%%\n",
		pathway, scope, stats.SampleCount, stats.SuccessRate*100)
	return nil
}
