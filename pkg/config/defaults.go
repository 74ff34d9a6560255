package config

const (
	defaultTailFormat  = "text"
	defaultServeListen = ":8090"
	defaultIntervalMS  = 250
	defaultProxyListen = ":8091"
	defaultSinkDriver  = "nop"
	defaultSinkTopic   = "ssetap.events"
	defaultSinkWorkers = 1
	defaultQueueSize   = 256
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Tail: TailConfig{
			Format: defaultTailFormat,
		},
		Serve: ServeConfig{
			Listen:     defaultServeListen,
			IntervalMS: defaultIntervalMS,
		},
		Proxy: ProxyConfig{
			Listen: defaultProxyListen,
		},
		Sink: SinkConfig{
			Driver:    defaultSinkDriver,
			Topic:     defaultSinkTopic,
			Workers:   defaultSinkWorkers,
			QueueSize: defaultQueueSize,
		},
	}
}
