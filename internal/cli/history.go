package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/model"
)

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Maximum number of assessments (0 = all)")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var historyCmd = &cobra.Command{
	Use:   "history <subject>",
	Short: "List stored assessments of a subject, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	list, err := st.ListAssessments(context.Background(), args[0], historyLimit)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		if list == nil {
			list = []model.Assessment{}
		}
		return printJSON(list)
	}
	fmt.Print(formatHistory(args[0], list))
	return nil
}

func formatHistory(subject string, list []model.Assessment) string {
	if len(list) == 0 {
		return fmt.Sprintf("No assessments stored for %s.\n", subject)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Assessments of %s:\n\n", subject)
	for _, a := range list {
		fmt.Fprintf(&b, "  %s  %-8s  impact %-4d  %d match(es)",
			a.AssessedAt.UTC().Format("2006-01-02 15:04:05"), a.RiskLevel, a.TotalImpact, len(a.Matches))
		if len(a.HighRiskPatterns) > 0 {
			fmt.Fprintf(&b, "  [%s]", strings.Join(a.HighRiskPatterns, ", "))
		}
		b.WriteString("\n")
	}
	return b.String()
}
