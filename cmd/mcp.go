package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/adreview/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so assistants can
query review history. Configure a client with:

  {
    "mcpServers": {
      "adreview": { "command": "adreview", "args": ["mcp"] }
    }
  }

Available tools: adreview_list_history, adreview_get_report,
adreview_extract_issues, adreview_analytics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s, buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
