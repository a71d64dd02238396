package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/model"
	"github.com/leoprotocol/leoscore/internal/store"
)

var (
	patternsCategory string
	patternsSeverity string
	patternsFormat   string
	patternsOut      string
)

func init() {
	rootCmd.AddCommand(patternsCmd)
	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsShowCmd)
	patternsCmd.AddCommand(patternsImportCmd)
	patternsCmd.AddCommand(patternsExportCmd)
	patternsCmd.AddCommand(patternsStatusCmd)

	patternsListCmd.Flags().StringVar(&patternsCategory, "category", "", "Only patterns of this category")
	patternsListCmd.Flags().StringVar(&patternsSeverity, "severity", "", "Only patterns of this severity")
	patternsListCmd.Flags().StringVarP(&patternsFormat, "format", "f", "text", "Output format (text|json)")
	patternsShowCmd.Flags().StringVarP(&patternsFormat, "format", "f", "text", "Output format (text|json)")
	patternsExportCmd.Flags().StringVarP(&patternsOut, "out", "o", "", "Write to file instead of stdout")
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect and manage the pattern catalog",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active patterns",
	Args:  cobra.NoArgs,
	RunE:  runPatternsList,
}

var patternsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one active pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatternsShow,
}

var patternsImportCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Validate a catalog file and load it into the database",
	Long: "Validates every record of a YAML catalog and upserts the patterns into\n" +
		"the database given by --db. One malformed record rejects the whole file.",
	Args: cobra.ExactArgs(1),
	RunE: runPatternsImport,
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the active catalog as YAML",
	Args:  cobra.NoArgs,
	RunE:  runPatternsExport,
}

var patternsStatusCmd = &cobra.Command{
	Use:   "status <id> <draft|active|deprecated|archived>",
	Short: "Change the lifecycle status of a stored pattern",
	Args:  cobra.ExactArgs(2),
	RunE:  runPatternsStatus,
}

func filterPatterns(patterns []model.Pattern, category, severity string) []model.Pattern {
	var out []model.Pattern
	for _, p := range patterns {
		if category != "" && string(p.Category) != category {
			continue
		}
		if severity != "" && string(p.Severity) != severity {
			continue
		}
		out = append(out, p)
	}
	return out
}

func runPatternsList(cmd *cobra.Command, args []string) error {
	return withEngine(context.Background(), func(eng *engine.Engine) error {
		patterns := filterPatterns(eng.Patterns(), patternsCategory, patternsSeverity)
		if patternsFormat == "json" {
			if patterns == nil {
				patterns = []model.Pattern{}
			}
			return printJSON(patterns)
		}
		fmt.Print(formatPatternList(patterns))
		return nil
	})
}

func runPatternsShow(cmd *cobra.Command, args []string) error {
	return withEngine(context.Background(), func(eng *engine.Engine) error {
		p, ok := eng.Pattern(args[0])
		if !ok {
			return fmt.Errorf("pattern %s not found among active patterns", args[0])
		}
		if patternsFormat == "json" {
			return printJSON(p)
		}
		fmt.Print(formatPattern(p))
		return nil
	})
}

func runPatternsImport(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("patterns import requires --db")
	}
	patterns, err := catalog.ReadFile(args[0])
	if err != nil {
		return err
	}
	if _, err := catalog.Load(patterns); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	// A fresh database has no patterns, so the engine would refuse to
	// start against it. Write through the store directly.
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ImportPatterns(context.Background(), patterns); err != nil {
		return err
	}
	fmt.Printf("Imported %d pattern(s) into %s\n", len(patterns), dbPath)
	return nil
}

func runPatternsExport(cmd *cobra.Command, args []string) error {
	return withEngine(context.Background(), func(eng *engine.Engine) error {
		data, err := catalog.Marshal(eng.Patterns())
		if err != nil {
			return err
		}
		if patternsOut == "" {
			fmt.Print(string(data))
			return nil
		}
		if err := os.WriteFile(patternsOut, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", patternsOut, err)
		}
		fmt.Printf("Wrote %d pattern(s) to %s\n", len(eng.Patterns()), patternsOut)
		return nil
	})
}

func runPatternsStatus(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("patterns status requires --db")
	}
	status := model.Status(args[1])
	switch status {
	case model.StatusDraft, model.StatusActive, model.StatusDeprecated, model.StatusArchived:
	default:
		return fmt.Errorf("unknown status %q", args[1])
	}
	ctx := context.Background()
	return withEngine(ctx, func(eng *engine.Engine) error {
		if err := eng.SetPatternStatus(ctx, args[0], status); err != nil {
			return err
		}
		fmt.Printf("%s is now %s\n", args[0], status)
		return nil
	})
}
