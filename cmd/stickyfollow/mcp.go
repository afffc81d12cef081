package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/stickyfollow/internal/ipc"
	"github.com/1broseidon/stickyfollow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the daemon as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout.

Tools forward to the running daemon, so "stickyfollow daemon" must be running.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewServer(ipc.NewClient(), logger).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
