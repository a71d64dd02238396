package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/metrics"
	"github.com/leoprotocol/leoscore/internal/restapi"
	"github.com/leoprotocol/leoscore/internal/server"
)

var (
	servePort     int
	serveHTTPPort int
	serveNoReload bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 50051, "gRPC listen port")
	serveCmd.Flags().IntVar(&serveHTTPPort, "http-port", 0, "HTTP/JSON API and /metrics listen port (0 = disabled)")
	serveCmd.Flags().BoolVar(&serveNoReload, "no-reload", false, "Disable hot-reload of catalog, policy and denylist files")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scoring server",
	Long: "Runs leoscore as a central scoring server over gRPC, optionally with\n" +
		"an HTTP/JSON API and Prometheus metrics on --http-port.\n" +
		"Catalog, policy and denylist files are hot-reloaded on change.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	m := metrics.New()
	eng, err := openEngine(context.Background(), logger, m)
	if err != nil {
		return err
	}
	defer eng.Close()

	srv := server.New(eng, server.Config{Port: servePort}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !serveNoReload {
		reloader, err := server.NewReloader(eng, eng.WatchPaths(), logger)
		if err != nil {
			logger.Warn("hot-reload disabled", zap.Error(err))
		} else {
			go reloader.Run(ctx)
			for _, p := range reloader.Paths() {
				fmt.Fprintf(os.Stderr, "Watching: %s\n", p)
			}
		}
	}

	app := restapi.NewApp(eng, logger)
	if serveHTTPPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", serveHTTPPort)
			if err := app.Listen(addr); err != nil {
				logger.Error("http server stopped", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down scoring server...")
		cancel()
		if serveHTTPPort > 0 {
			_ = app.Shutdown()
		}
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "leoscore scoring server listening on :%d (gRPC)\n", servePort)
	if serveHTTPPort > 0 {
		fmt.Fprintf(os.Stderr, "HTTP API and metrics on :%d\n", serveHTTPPort)
	}
	fmt.Fprintf(os.Stderr, "Catalog: %d active patterns (%s)\n", len(eng.Patterns()), eng.CatalogHash())
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
