// Package cortexcmder
package cortexcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/SaintNick1214/cortex/cmd/cortex/config"
	initcmder "github.com/SaintNick1214/cortex/cmd/cortex/init"
	servecmder "github.com/SaintNick1214/cortex/cmd/cortex/serve"
	statuscmder "github.com/SaintNick1214/cortex/cmd/cortex/status"
	usecmder "github.com/SaintNick1214/cortex/cmd/cortex/use"
	versioncmder "github.com/SaintNick1214/cortex/cmd/version"
)

const cortexLongDesc string = `Cortex is a persistent memory store for AI agents.

It keeps versioned facts with belief revision, unstructured memories,
hierarchical contexts, and conversation history, partitioned into
isolated memory spaces.

Run the server using:
  cortex serve         Run the API and MCP server`

const cortexShortDesc string = "Cortex - Agent Memory Store"

func NewCortexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cortex",
		Short: cortexShortDesc,
		Long:  cortexLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .cortex directory location")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(usecmder.NewUseCmd())
	cmd.AddCommand(statuscmder.NewStatusCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
