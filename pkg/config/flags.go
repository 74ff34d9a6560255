package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "serve.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagFormat      = "format"
	FlagTerminateOn = "terminate-on"
	FlagDoneData    = "done-data"
	FlagLastEventID = "last-event-id"
	FlagRecord      = "record"

	FlagServeListen = "listen"
	FlagFixture     = "fixture"
	FlagIntervalMS  = "interval"
	FlagWatch       = "watch"
	FlagAssignIDs   = "assign-ids"

	FlagProxyListen = "proxy-listen"
	FlagUpstream    = "upstream"

	FlagSinkDriver    = "sink"
	FlagSinkDSN       = "sink-dsn"
	FlagSinkBrokers   = "sink-brokers"
	FlagSinkTopic     = "sink-topic"
	FlagSinkWorkers   = "sink-workers"
	FlagSinkQueueSize = "sink-queue-size"
)

// Registry is the FlagSet shared by all ssetap commands.
var Registry = FlagSet{
	FlagFormat:      {Name: "format", Shorthand: "f", ViperKey: "tail.format", Description: "Output format (text, json, raw)"},
	FlagTerminateOn: {Name: "terminate-on", Shorthand: "t", ViperKey: "tail.terminate_on", Description: "Comma separated event types that end the tail"},
	FlagDoneData:    {Name: "done-data", ViperKey: "tail.done_data", Description: "Event data that ends the tail (e.g. [DONE])"},
	FlagLastEventID: {Name: "last-event-id", ViperKey: "tail.last_event_id", Description: "Resume the stream after this event id"},
	FlagRecord:      {Name: "record", Shorthand: "r", ViperKey: "tail.record", Description: "Copy the raw stream to this file"},

	FlagServeListen: {Name: "listen", Shorthand: "l", ViperKey: "serve.listen", Description: "Address for the replay server to listen on"},
	FlagFixture:     {Name: "fixture", ViperKey: "serve.fixture", Description: "Path to the recorded SSE stream to replay"},
	FlagIntervalMS:  {Name: "interval", ViperKey: "serve.interval_ms", Description: "Delay between replayed events in milliseconds"},
	FlagWatch:       {Name: "watch", Shorthand: "w", ViperKey: "serve.watch", Description: "Reload the fixture when it changes"},
	FlagAssignIDs:   {Name: "assign-ids", ViperKey: "serve.assign_ids", Description: "Give events without an id a generated one"},

	FlagProxyListen: {Name: "listen", Shorthand: "l", ViperKey: "proxy.listen", Description: "Address for the tap proxy to listen on"},
	FlagUpstream:    {Name: "upstream", Shorthand: "u", ViperKey: "proxy.upstream", Description: "Upstream base URL requests are forwarded to"},

	FlagSinkDriver:    {Name: "sink", ViperKey: "sink.driver", Description: "Event sink (nop, sqlite, postgres, kafka)"},
	FlagSinkDSN:       {Name: "sink-dsn", ViperKey: "sink.dsn", Description: "SQLite path or Postgres connection string"},
	FlagSinkBrokers:   {Name: "sink-brokers", ViperKey: "sink.brokers", Description: "Comma separated Kafka brokers"},
	FlagSinkTopic:     {Name: "sink-topic", ViperKey: "sink.topic", Description: "Kafka topic"},
	FlagSinkWorkers:   {Name: "sink-workers", ViperKey: "sink.workers", Description: "Number of sink workers"},
	FlagSinkQueueSize: {Name: "sink-queue-size", ViperKey: "sink.queue_size", Description: "Capacity of the sink queue"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	return defaults().GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	return defaults().GetUint(viperKey)
}

// defaultBool returns the default bool value for a viper key from NewDefaultConfig.
func defaultBool(viperKey string) bool {
	return defaults().GetBool(viperKey)
}
