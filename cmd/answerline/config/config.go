// Package configcmder provides the config command for managing persistent
// answerline configuration stored in the .answerline/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent answerline configuration.

Configuration is stored as config.toml in the .answerline/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.sqlite_path, api.listen,
  agent.context_limit, agent.max_parallel_tools, agent.tool_timeout_ms,
  eventstream.kafka_brokers, eventstream.kafka_topic,
  client.api_target

Use subcommands to get, set, or list configuration values:
  answerline config set <key> <value>    Set a configuration value
  answerline config get <key>            Get a configuration value
  answerline config list                 List all configuration values

Examples:
  answerline config set api.listen :9090
  answerline config set agent.context_limit 20
  answerline config get api.listen
  answerline config list`

const configShortDesc string = "Manage persistent answerline configuration"

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
