package cli

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/mcp"
)

var (
	mcpFiles []string
	mcpPort  int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose a session to AI assistants over MCP",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one session as a Model Context Protocol server",
	Long: `Serve one session for as long as the process runs.

Tools: ingest indexes files, retrieve returns the fused passages and ask
answers with citations. The conversation so far is a resource.

JSON-RPC runs over stdin and stdout unless --port is given, in which case
it is served over streamable HTTP.

  sercha-rag mcp serve --file handbook.pdf
  sercha-rag mcp serve --port 8080

Desktop assistant entry:
  {"mcpServers": {"sercha-rag": {"command": "sercha-rag", "args": ["mcp", "serve"]}}}`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntVarP(&mcpPort, "port", "p", 0, "serve HTTP on this port instead of stdio")
	mcpServeCmd.Flags().StringArrayVarP(&mcpFiles, "file", "f", nil, "file to index on start (repeatable)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	session, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer closeSession(session)

	// Stdout belongs to the protocol in stdio mode.
	log := cmd.ErrOrStderr()
	if len(mcpFiles) > 0 {
		if err := ingestPaths(cmd.Context(), log, session, mcpFiles); err != nil {
			return err
		}
	}

	server, err := mcp.NewServer(&mcp.Ports{Session: session})
	if err != nil {
		return err
	}

	if mcpPort <= 0 {
		return server.Run(cmd.Context())
	}
	addr := net.JoinHostPort("", strconv.Itoa(mcpPort))
	fmt.Fprintf(log, "MCP server listening on http://localhost%s\n", addr)
	return server.RunHTTP(cmd.Context(), addr)
}
