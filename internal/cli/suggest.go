package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leoprotocol/leoscore/internal/client"
	"github.com/leoprotocol/leoscore/internal/engine"
	"github.com/leoprotocol/leoscore/internal/model"
)

var (
	suggestFormat string
	suggestServer string
)

func init() {
	rootCmd.AddCommand(suggestCmd)
	suggestCmd.Flags().StringVarP(&suggestFormat, "format", "f", "text", "Output format (text|json)")
	suggestCmd.Flags().StringVar(&suggestServer, "server", "", "Map on a remote leoscore server (host:port)")
}

var suggestCmd = &cobra.Command{
	Use:   "suggest <postmortem.yaml>",
	Short: "Map a post-mortem to the patterns it most likely describes",
	Long: "Reads a post-mortem (id, summary, whys) and ranks catalog patterns by\n" +
		"how well their detection signals match the incident text.",
	Args: cobra.ExactArgs(1),
	RunE: runSuggest,
}

func runSuggest(cmd *cobra.Command, args []string) error {
	var pm model.PostMortem
	if err := readInput(args[0], &pm); err != nil {
		return err
	}

	ctx := context.Background()
	var suggestions []model.Match
	if suggestServer != "" {
		cl, err := client.New(suggestServer)
		if err != nil {
			return err
		}
		defer cl.Close()
		if suggestions, err = cl.Suggest(ctx, pm); err != nil {
			return fmt.Errorf("remote suggest: %w", err)
		}
	} else {
		err := withEngine(ctx, func(eng *engine.Engine) error {
			var err error
			suggestions, err = eng.Suggest(ctx, pm)
			return err
		})
		if err != nil {
			return err
		}
	}

	if suggestFormat == "json" {
		if suggestions == nil {
			suggestions = []model.Match{}
		}
		return printJSON(suggestions)
	}
	if len(suggestions) == 0 {
		fmt.Printf("Post-mortem %s: no matching patterns.\n", pm.ID)
		return nil
	}
	fmt.Printf("Post-mortem %s: %d suggested pattern(s)\n\n", pm.ID, len(suggestions))
	fmt.Print(formatMatches(suggestions))
	return nil
}
