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
	bypassID          string
	bypassTitle       string
	bypassDescription string
	bypassLOC         int
	bypassSeverity    string
	bypassFiles       []string
	bypassType        string
	bypassSchema      bool
	bypassAuth        bool
	bypassFormat      string
	bypassServer      string
	bypassExitCode    bool
)

func init() {
	rootCmd.AddCommand(bypassCmd)
	f := bypassCmd.Flags()
	f.StringVar(&bypassID, "id", "", "Issue identifier")
	f.StringVar(&bypassTitle, "title", "", "Issue title")
	f.StringVar(&bypassDescription, "description", "", "Issue description")
	f.IntVar(&bypassLOC, "loc", 0, "Estimated lines of code changed")
	f.StringVar(&bypassSeverity, "severity", "low", "Issue severity (low|medium|high|critical)")
	f.StringSliceVar(&bypassFiles, "file", nil, "Affected file (repeatable)")
	f.StringVar(&bypassType, "type", "bug", "Change type (typo|documentation|bug|feature|refactor|chore)")
	f.BoolVar(&bypassSchema, "schema", false, "Change touches the database schema")
	f.BoolVar(&bypassAuth, "auth", false, "Change touches authentication or authorization")
	f.StringVarP(&bypassFormat, "format", "f", "text", "Output format (text|json)")
	f.StringVar(&bypassServer, "server", "", "Evaluate on a remote leoscore server (host:port); unreachable means FULL_SD")
	f.BoolVar(&bypassExitCode, "exit-code", false, "Exit 1 when the change may not bypass the full process")
}

var bypassCmd = &cobra.Command{
	Use:   "bypass [issue.yaml]",
	Short: "Decide whether a change may skip the full governance process",
	Long: "Evaluates an issue against the bypass decision table and prints the\n" +
		"pathway: MICRO_FIX, QUICK_FIX or FULL_SD.\n\n" +
		"The issue is read from a YAML/JSON file ('-' for stdin) or built from flags.",
	Args: cobra.MaximumNArgs(1),
	RunE: runBypass,
}

func issueFromFlags() model.Issue {
	return model.Issue{
		ID:               bypassID,
		Title:            bypassTitle,
		Description:      bypassDescription,
		EstimatedLOC:     bypassLOC,
		Severity:         model.Severity(bypassSeverity),
		AffectedFiles:    bypassFiles,
		Type:             model.ChangeType(bypassType),
		HasSchemaChanges: bypassSchema,
		HasAuthChanges:   bypassAuth,
	}
}

func runBypass(cmd *cobra.Command, args []string) error {
	issue := issueFromFlags()
	if len(args) == 1 {
		issue = model.Issue{}
		if err := readInput(args[0], &issue); err != nil {
			return err
		}
	}

	ctx := context.Background()
	var r model.BypassResult
	if bypassServer != "" {
		cl, err := client.New(bypassServer)
		if err != nil {
			return err
		}
		defer cl.Close()
		r = cl.EvaluateBypass(ctx, issue)
	} else {
		err := withEngine(ctx, func(eng *engine.Engine) error {
			var err error
			r, err = eng.EvaluateBypass(ctx, issue)
			return err
		})
		if err != nil {
			return err
		}
	}

	switch bypassFormat {
	case "json":
		if err := printJSON(r); err != nil {
			return err
		}
	default:
		fmt.Print(formatBypass(r))
	}

	if bypassExitCode && !r.Bypass {
		os.Exit(1)
	}
	return nil
}
