// Package configcmder provides the config command for managing persistent
// loom configuration stored in the .loom/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent loom configuration.

Configuration is stored as config.toml in the .loom/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, client.api_target,
  storage.provider, storage.sqlite_path,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model,
  orchestrator.pool_size, chat.tenant, chat.top_k,
  eventstream.provider, eventstream.brokers, eventstream.topic

Use subcommands to get, set, or list configuration values:
  loom config set <key> <value>    Set a configuration value
  loom config get <key>            Get a configuration value
  loom config list                 List all configuration values

Examples:
  loom config set llm.model llama3
  loom config set eventstream.provider kafka
  loom config get llm.model
  loom config list`

const configShortDesc string = "Manage persistent loom configuration"

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
