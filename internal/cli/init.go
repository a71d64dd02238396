package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/denylist"
	"github.com/leoprotocol/leoscore/internal/policy"
)

var (
	initDir   string
	initForce bool
)

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", "", "Config directory (default: ~/.leoscore)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap leoscore configuration",
	Long: `Creates the config directory with a default policy, denylist and an
editable copy of the built-in pattern catalog.

  policy.yaml     scoring thresholds, mapping weights, bypass limits, alerts
  denylist.yaml   sensitive keywords and critical file paths
  patterns.yaml   anti-pattern catalog (pass with --patterns to use it)`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	denylistContent, err := defaultDenylistYAML()
	if err != nil {
		return fmt.Errorf("generate default denylist: %w", err)
	}
	patternsContent, err := catalog.Marshal(catalog.DefaultPatterns())
	if err != nil {
		return fmt.Errorf("generate default catalog: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"policy.yaml", policy.DefaultConfigYAML()},
		{"denylist.yaml", denylistContent},
		{"patterns.yaml", "# leoscore pattern catalog\n# Only patterns with status: active are scored.\n\n" + string(patternsContent)},
	}

	var created []string
	for _, f := range files {
		path := filepath.Join(configDir, f.name)
		wrote, err := writeIfMissing(path, f.content)
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, path)
		}
	}

	fmt.Println("leoscore init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Verify:")
	fmt.Println("  leoscore doctor")
	fmt.Println()
	fmt.Println("Score a subject:")
	fmt.Printf("  leoscore score --patterns %s --subject <id> context.yaml\n", filepath.Join(configDir, "patterns.yaml"))

	return nil
}

func initConfigDir() (string, error) {
	if initDir != "" {
		return initDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".leoscore"), nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

func defaultDenylistYAML() (string, error) {
	data, err := yaml.Marshal(denylist.DefaultPatterns)
	if err != nil {
		return "", err
	}
	header := "# leoscore denylist.\n" +
		"# Keywords (database, security, financial, privacy) found in an issue's\n" +
		"# title or description force the full governance process. A keyword\n" +
		"# matches any word it starts: \"token\" also matches \"tokens\".\n" +
		"# critical_paths are glob patterns; matching files lower quick-fix\n" +
		"# confidence and rule out micro fixes.\n\n"
	return header + string(data), nil
}
