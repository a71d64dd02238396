package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/audit"
)

var (
	replayLog       string
	replayFrom      string
	replayTo        string
	replayOperation string
	replayFormat    string
)

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVarP(&replayLog, "log", "l", "", "Path to audit log (required)")
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayOperation, "operation", "", "Only this operation (score|suggest|bypass)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
	replayCmd.MarkFlagRequired("log")
}

var replayCmd = &cobra.Command{
	Use:   "replay <subject-id>",
	Short: "Replay the decisions recorded for one subject",
	Long:  "Reads the audit log, filters by subject and optional time range,\nand renders a decision timeline with summary.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s time %q: %w", name, value, err)
	}
	return t, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	switch replayOperation {
	case "", audit.OpScore, audit.OpSuggest, audit.OpBypass:
	default:
		return fmt.Errorf("unknown operation %q", replayOperation)
	}

	filter := audit.ReplayFilter{SubjectID: args[0], Operation: replayOperation}

	var err error
	if filter.From, err = parseTimeFlag("from", replayFrom); err != nil {
		return err
	}
	if filter.To, err = parseTimeFlag("to", replayTo); err != nil {
		return err
	}

	result, err := audit.Replay(replayLog, filter)
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(audit.FormatTimeline(result))
	}

	return nil
}
