package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/logging"
	"github.com/leoprotocol/leoscore/internal/metrics"
)

var (
	patternsPath string
	policyPath   string
	denylistPath string
	dbPath       string
	auditLogPath string
	logLevel     string
	logFormat    string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&patternsPath, "patterns", "", "Path to pattern catalog YAML (default: built-in catalog)")
	pf.StringVar(&policyPath, "policy", "", "Path to policy YAML (default: ~/.leoscore/policy.yaml)")
	pf.StringVar(&denylistPath, "denylist", "", "Path to denylist YAML (default: ~/.leoscore/denylist.yaml)")
	pf.StringVar(&dbPath, "db", "", "Path to SQLite database (patterns, outcomes, assessments)")
	pf.StringVar(&auditLogPath, "audit-log", "", "Path to audit log JSONL file")
	pf.StringVar(&logLevel, "log-level", "warn", "Log level (debug|info|warn|error)")
	pf.StringVar(&logFormat, "log-format", "console", "Log encoding (console|json)")
}

var rootCmd = &cobra.Command{
	Use:   "leoscore",
	Short: "Rule-based risk scoring and governance bypass evaluation",
	Long: "Scores ventures against a catalog of weighted anti-patterns, maps\n" +
		"post-mortems back to the patterns they describe, and decides whether a\n" +
		"change may skip the full governance process.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	logger, err := logging.New(logLevel, logFormat)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return logger, nil
}

// openEngine builds an engine from the persistent flags. m may be nil.
func openEngine(ctx context.Context, logger *zap.Logger, m *metrics.Metrics) (*engine.Engine, error) {
	eng, err := engine.New(ctx, engine.Config{
		PatternsPath: patternsPath,
		PolicyPath:   policyPath,
		DenylistPath: denylistPath,
		DBPath:       dbPath,
		AuditLogPath: auditLogPath,
		Logger:       logger,
		Metrics:      m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	return eng, nil
}

// withEngine runs fn against a freshly opened engine and closes it afterwards.
func withEngine(ctx context.Context, fn func(*engine.Engine) error) (err error) {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	eng, err := openEngine(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := eng.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(eng)
}
