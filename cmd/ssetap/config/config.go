// Package configcmder provides the config command for managing persistent
// ssetap configuration stored in the .ssetap/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent ssetap configuration.

Configuration is stored as config.toml in the .ssetap/ directory and provides
default values for command flags. Environment variables prefixed with SSETAP_
(e.g. SSETAP_SINK_DRIVER) override the file, and CLI flags always take
precedence over both.

Keys use dotted notation matching the TOML section structure:
  tail.url, tail.format, tail.terminate_on, tail.done_data,
  tail.last_event_id, tail.record,
  serve.listen, serve.fixture, serve.interval_ms, serve.watch, serve.assign_ids,
  sink.driver, sink.dsn, sink.brokers, sink.topic, sink.workers, sink.queue_size

Use subcommands to create, get, set, or list configuration values:
  ssetap config init                  Create .ssetap/config.toml
  ssetap config set <key> <value>     Set a configuration value
  ssetap config get <key>             Get a configuration value
  ssetap config list                  List all configuration values

Examples:
  ssetap config init --preset anthropic
  ssetap config set sink.driver sqlite
  ssetap config get serve.listen
  ssetap config list`

const configShortDesc string = "Manage persistent ssetap configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
