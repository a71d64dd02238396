package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/policy"
	"github.com/leoprotocol/leoscore/internal/policydiff"
)

var (
	diffFormat  string
	diffCatalog bool
)

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
	diffCmd.Flags().BoolVar(&diffCatalog, "catalog", false, "Compare two pattern catalogs instead of policies")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old.yaml> <new.yaml>",
	Short: "Compare two policy files or pattern catalogs",
	Long: "Loads two policy YAML files and shows what changed in human-readable terms:\n" +
		"thresholds (stricter/looser), bypass limits and alert webhooks.\n" +
		"With --catalog, compares two pattern catalogs: patterns added, removed\n" +
		"or changed in status, severity, weight or signals.",
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func diffFiles(oldPath, newPath string) (*policydiff.DiffResult, error) {
	var result *policydiff.DiffResult
	if diffCatalog {
		oldPatterns, err := catalog.ReadFile(oldPath)
		if err != nil {
			return nil, fmt.Errorf("load old catalog: %w", err)
		}
		newPatterns, err := catalog.ReadFile(newPath)
		if err != nil {
			return nil, fmt.Errorf("load new catalog: %w", err)
		}
		result = policydiff.DiffCatalogs(oldPatterns, newPatterns)
	} else {
		oldCfg, err := policy.LoadConfig(oldPath)
		if err != nil {
			return nil, fmt.Errorf("load old policy: %w", err)
		}
		newCfg, err := policy.LoadConfig(newPath)
		if err != nil {
			return nil, fmt.Errorf("load new policy: %w", err)
		}
		result = policydiff.Diff(oldCfg, newCfg)
	}
	result.OldPath = oldPath
	result.NewPath = newPath
	return result, nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	result, err := diffFiles(args[0], args[1])
	if err != nil {
		return err
	}

	switch diffFormat {
	case "json":
		out, err := policydiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(policydiff.FormatText(result))
	}

	return nil
}
