package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent ssetap configuration stored as config.toml
// in the .ssetap/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int         `toml:"version"`
	Tail    TailConfig  `toml:"tail"`
	Serve   ServeConfig `toml:"serve"`
	Proxy   ProxyConfig `toml:"proxy"`
	Sink    SinkConfig  `toml:"sink"`
}

// TailConfig holds settings for "ssetap tail".
type TailConfig struct {
	URL string `toml:"url,omitempty"`

	// Format is the output rendering: text, json or raw.
	Format string `toml:"format,omitempty"`

	// TerminateOn is a comma separated list of event types that end the tail.
	TerminateOn string `toml:"terminate_on,omitempty"`

	// DoneData ends the tail when an event's data equals it, e.g. "[DONE]".
	DoneData string `toml:"done_data,omitempty"`

	// LastEventID is sent as the Last-Event-ID header to resume a stream.
	LastEventID string `toml:"last_event_id,omitempty"`

	// Record is an optional file path the raw stream is copied to.
	Record string `toml:"record,omitempty"`
}

// ServeConfig holds settings for the "ssetap serve" replay server.
type ServeConfig struct {
	Listen     string `toml:"listen,omitempty"`
	Fixture    string `toml:"fixture,omitempty"`
	IntervalMS uint   `toml:"interval_ms,omitempty"`
	Watch      bool   `toml:"watch,omitempty"`
	AssignIDs  bool   `toml:"assign_ids,omitempty"`
}

// ProxyConfig holds settings for the "ssetap proxy" tap.
type ProxyConfig struct {
	Listen   string `toml:"listen,omitempty"`
	Upstream string `toml:"upstream,omitempty"`
}

// SinkConfig holds settings for persisting tailed events.
type SinkConfig struct {
	// Driver is one of nop, sqlite, postgres or kafka.
	Driver string `toml:"driver,omitempty"`

	// DSN is the sqlite path or postgres connection string.
	DSN string `toml:"dsn,omitempty"`

	// Brokers is a comma separated list of kafka brokers.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`

	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"tail.url":           stringKey(func(c *Config) *string { return &c.Tail.URL }),
	"tail.format":        stringKey(func(c *Config) *string { return &c.Tail.Format }),
	"tail.terminate_on":  stringKey(func(c *Config) *string { return &c.Tail.TerminateOn }),
	"tail.done_data":     stringKey(func(c *Config) *string { return &c.Tail.DoneData }),
	"tail.last_event_id": stringKey(func(c *Config) *string { return &c.Tail.LastEventID }),
	"tail.record":        stringKey(func(c *Config) *string { return &c.Tail.Record }),

	"serve.listen":      stringKey(func(c *Config) *string { return &c.Serve.Listen }),
	"serve.fixture":     stringKey(func(c *Config) *string { return &c.Serve.Fixture }),
	"serve.interval_ms": uintKey("serve.interval_ms", func(c *Config) *uint { return &c.Serve.IntervalMS }),
	"serve.watch":       boolKey("serve.watch", func(c *Config) *bool { return &c.Serve.Watch }),
	"serve.assign_ids":  boolKey("serve.assign_ids", func(c *Config) *bool { return &c.Serve.AssignIDs }),

	"proxy.listen":   stringKey(func(c *Config) *string { return &c.Proxy.Listen }),
	"proxy.upstream": stringKey(func(c *Config) *string { return &c.Proxy.Upstream }),

	"sink.driver":     stringKey(func(c *Config) *string { return &c.Sink.Driver }),
	"sink.dsn":        stringKey(func(c *Config) *string { return &c.Sink.DSN }),
	"sink.brokers":    stringKey(func(c *Config) *string { return &c.Sink.Brokers }),
	"sink.topic":      stringKey(func(c *Config) *string { return &c.Sink.Topic }),
	"sink.workers":    uintKey("sink.workers", func(c *Config) *uint { return &c.Sink.Workers }),
	"sink.queue_size": uintKey("sink.queue_size", func(c *Config) *uint { return &c.Sink.QueueSize }),
}

// orderedKeys is the stable, TOML-section order used by ValidConfigKeys.
var orderedKeys = []string{
	"tail.url",
	"tail.format",
	"tail.terminate_on",
	"tail.done_data",
	"tail.last_event_id",
	"tail.record",
	"serve.listen",
	"serve.fixture",
	"serve.interval_ms",
	"serve.watch",
	"serve.assign_ids",
	"proxy.listen",
	"proxy.upstream",
	"sink.driver",
	"sink.dsn",
	"sink.brokers",
	"sink.topic",
	"sink.workers",
	"sink.queue_size",
}
