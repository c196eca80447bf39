// Package configcmder provides the config command for managing persistent
// cortex configuration stored in the .cortex/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent cortex configuration.

Configuration is stored as config.toml in the .cortex/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.backend, storage.sqlite_path, storage.postgres_url,
  api.listen,
  client.api_target,
  events.enabled, events.brokers, events.topic,
  export.format

Use subcommands to get, set, or list configuration values:
  cortex config set <key> <value>    Set a configuration value
  cortex config get <key>            Get a configuration value
  cortex config list                 List all configuration values

Examples:
  cortex config set storage.backend postgres
  cortex config set events.enabled true
  cortex config get api.listen
  cortex config list`

const configShortDesc string = "Manage persistent cortex configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
