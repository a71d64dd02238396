package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/client"
	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/model"
)

var (
	scoreSubject string
	scoreFormat  string
	scoreServer  string
	scoreFailOn  string
)

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().StringVarP(&scoreSubject, "subject", "s", "", "Subject identifier (required)")
	scoreCmd.Flags().StringVarP(&scoreFormat, "format", "f", "text", "Output format (text|json)")
	scoreCmd.Flags().StringVar(&scoreServer, "server", "", "Score on a remote leoscore server (host:port)")
	scoreCmd.Flags().StringVar(&scoreFailOn, "fail-on", "", "Exit 1 when the risk level is at least this level")
	scoreCmd.MarkFlagRequired("subject")
}

var scoreCmd = &cobra.Command{
	Use:   "score [context.yaml]",
	Short: "Assess a subject against the pattern catalog",
	Long: "Reads the subject's context facts (YAML or JSON, '-' for stdin) and\n" +
		"reports matched patterns, impact, risk level and recommendations.\n" +
		"Without a file the subject is scored with no known facts.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	var failOn model.RiskLevel
	if scoreFailOn != "" {
		l, err := parseRiskLevel(scoreFailOn)
		if err != nil {
			return err
		}
		failOn = l
	}

	sc := &model.Context{}
	if len(args) == 1 {
		if err := readInput(args[0], sc); err != nil {
			return err
		}
	}

	ctx := context.Background()
	var a model.Assessment
	if scoreServer != "" {
		cl, err := client.New(scoreServer)
		if err != nil {
			return err
		}
		defer cl.Close()
		if a, err = cl.Score(ctx, scoreSubject, sc); err != nil {
			return fmt.Errorf("remote score: %w", err)
		}
	} else {
		err := withEngine(ctx, func(eng *engine.Engine) error {
			var err error
			a, err = eng.Score(ctx, scoreSubject, sc)
			return err
		})
		if err != nil {
			return err
		}
	}

	switch scoreFormat {
	case "json":
		if err := printJSON(a); err != nil {
			return err
		}
	default:
		fmt.Print(formatAssessment(a))
	}

	if failOn != "" && a.RiskLevel.AtLeast(failOn) {
		fmt.Fprintf(os.Stderr, "risk level %s is at or above %s\n", a.RiskLevel, failOn)
		os.Exit(1)
	}
	return nil
}
