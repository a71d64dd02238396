package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	leomcp "github.com/leoprotocol/leoscore/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs leoscore as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes tools: leo_score, leo_suggest, leo_bypass, leo_patterns.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := openEngine(ctx, logger, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "leoscore MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Catalog: %d active patterns\n\n", len(eng.Patterns()))

	return leomcp.New(eng, version, logger).Run(ctx)
}
