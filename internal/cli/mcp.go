package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	splanmcp "github.com/valter-silva-au/site-planner/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the splan MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the splan MCP server on stdio",
	Long: `Start the splan MCP server on stdio transport.

The server exposes planning as MCP tools that AI assistants can call:
list_tasks, get_summary, get_timeline, get_alerts, detect_alerts,
resolve_alert, update_task_progress.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requirePlanner(); err != nil {
			return err
		}

		srv := splanmcp.NewServer(Planner, Timeline, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
