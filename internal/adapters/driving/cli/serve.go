package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docquery/internal/adapters/driving/mcp"
	"github.com/custodia-labs/docquery/internal/logger"
	"github.com/custodia-labs/docquery/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

The corpus is reconciled once before serving, so the first query never
races an empty index. With watch enabled in the configuration, changes
to the storage directory trigger further reconciliation passes.

By default the server communicates over stdio using JSON-RPC. Use
--port to serve HTTP instead.

Examples:
  # Stdio mode (default, for MCP-compatible assistants)
  docquery serve --storage ./docs

  # HTTP mode (for MCP Inspector, remote access)
  docquery serve --storage ./docs --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	if err := initEngine(); err != nil {
		return err
	}

	ctx := cmd.Context()

	// First pass is fatal on failure: serving with no snapshot would
	// turn every tool call into an error anyway.
	if _, err := reconcileService.Reconcile(ctx); err != nil {
		return fmt.Errorf("initial reconciliation: %w", err)
	}

	if appConfig.Watch.Enabled {
		watcher := watch.New(
			appConfig.Storage.Dir,
			time.Duration(appConfig.Watch.DebounceMillis)*time.Millisecond,
			reconcileService,
		)
		go func() {
			if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Warn("watcher stopped: %v", err)
			}
		}()
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Query:     queryService,
		Reconcile: reconcileService,
	}, mcp.Options{
		DefaultTopK:  appConfig.Search.Limit,
		MaxTopK:      appConfig.Search.MaxTopK,
		DefaultFloor: appConfig.Search.Floor,
		SnippetChars: appConfig.Search.SnippetChars,
	})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		logger.Info("MCP server listening on http://localhost%s", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
