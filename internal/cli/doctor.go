package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/audit"
	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/denylist"
	"github.com/leoprotocol/leoscore/internal/policy"
	"github.com/leoprotocol/leoscore/internal/store"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, catalog and database readiness",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checks := doctorChecks(context.Background())

	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-16s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}

func doctorChecks(ctx context.Context) []checkResult {
	var checks []checkResult

	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{label: "leoscore binary", ok: true, detail: fmt.Sprintf("%s (v%s)", execPath, version)})
	} else {
		checks = append(checks, checkResult{label: "leoscore binary", detail: "cannot determine executable path"})
	}

	if configDir := filepath.Dir(policy.DefaultPath("policy.yaml")); configDir != "." {
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			checks = append(checks, checkResult{label: "config directory", ok: true, detail: configDir})
		} else {
			checks = append(checks, checkResult{label: "config directory", detail: "missing", fix: "leoscore init"})
		}
	}

	checks = append(checks, checkPolicy(), checkDenylist(), checkPatterns(ctx))
	if dbPath != "" {
		checks = append(checks, checkDatabase(ctx))
	}
	if auditLogPath != "" {
		checks = append(checks, checkAuditLog())
	}
	return checks
}

func describePath(path, name string) string {
	if path != "" {
		return path
	}
	if def := policy.DefaultPath(name); def != "" {
		if _, err := os.Stat(def); err == nil {
			return def
		}
	}
	return "built-in defaults"
}

func checkPolicy() checkResult {
	cfg, hash, err := policy.LoadConfigWithHash(policyPath)
	if err != nil {
		return checkResult{label: "policy", detail: err.Error(), fix: "leoscore init-policy"}
	}
	return checkResult{
		label:  "policy",
		ok:     true,
		detail: fmt.Sprintf("%s (%s, %d alert(s))", describePath(policyPath, "policy.yaml"), shortHash(hash), len(cfg.Alerts)),
	}
}

func checkDenylist() checkResult {
	if _, err := denylist.Load(denylistPath); err != nil {
		return checkResult{label: "denylist", detail: err.Error(), fix: "leoscore init --force"}
	}
	return checkResult{label: "denylist", ok: true, detail: describePath(denylistPath, "denylist.yaml")}
}

func checkPatterns(ctx context.Context) checkResult {
	var (
		c   *catalog.Catalog
		err error
	)
	source := patternsPath
	if dbPath != "" {
		source = dbPath
		c, err = loadStoredCatalog(ctx)
	} else {
		if source == "" {
			source = "built-in"
		}
		c, err = catalog.LoadFile(patternsPath)
	}
	if err != nil {
		return checkResult{label: "patterns", detail: err.Error()}
	}
	if c.Len() == 0 {
		return checkResult{label: "patterns", detail: source + ": no active patterns", fix: "leoscore patterns import <catalog.yaml> --db " + dbPath}
	}
	return checkResult{label: "patterns", ok: true, detail: fmt.Sprintf("%s: %d active (%s)", source, c.Len(), shortHash(c.Hash()))}
}

func loadStoredCatalog(ctx context.Context) (*catalog.Catalog, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	patterns, err := st.LoadPatterns(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Load(patterns)
}

func checkDatabase(ctx context.Context) checkResult {
	st, err := store.Open(dbPath)
	if err != nil {
		return checkResult{label: "database", detail: err.Error()}
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		return checkResult{label: "database", detail: err.Error()}
	}
	return checkResult{label: "database", ok: true, detail: dbPath}
}

func checkAuditLog() checkResult {
	if _, err := os.Stat(auditLogPath); os.IsNotExist(err) {
		return checkResult{label: "audit log", ok: true, detail: auditLogPath + " (not created yet)"}
	}
	r := audit.Verify(auditLogPath)
	if !r.Valid {
		return checkResult{label: "audit log", detail: fmt.Sprintf("chain broken at line %d: %s", r.ErrorLine, r.Error)}
	}
	return checkResult{label: "audit log", ok: true, detail: fmt.Sprintf("%s (%d entries verified)", auditLogPath, r.Lines)}
}

func shortHash(h string) string {
	if len(h) > 19 {
		return h[:19]
	}
	return h
}
