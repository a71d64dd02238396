package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/scenario"
)

var (
	checkScenario string
	checkFormat   string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkScenario, "scenario", "", "Glob pattern for scenario YAML files (required)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("scenario")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run scoring assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, evaluates each\n" +
		"case (score, suggest or bypass) against the configured catalog and\n" +
		"policy, and reports pass/fail.\n\n" +
		"Exit code 0 if all cases pass, 1 if any fail.\n" +
		"Use in CI to gate catalog and policy changes.",
	RunE: runCheck,
}

func runScenarios(ctx context.Context, paths []string) ([]*scenario.RunResult, error) {
	var results []*scenario.RunResult
	err := withEngine(ctx, func(eng *engine.Engine) error {
		for _, path := range paths {
			r, err := scenario.LoadAndRun(ctx, path, eng)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results = append(results, r)
		}
		return nil
	})
	return results, err
}

func runCheck(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(checkScenario)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", checkScenario)
	}

	results, err := runScenarios(context.Background(), matches)
	if err != nil {
		return err
	}

	switch checkFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}

	return nil
}
