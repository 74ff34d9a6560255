package sink

import (
	"context"
	"fmt"
	"strings"
)

// Driver names accepted by Open.
const (
	DriverNop      = "nop"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverKafka    = "kafka"
)

// Options selects and configures a sink driver.
type Options struct {
	// Driver is one of DriverNop, DriverSQLite, DriverPostgres or DriverKafka.
	// Empty means DriverNop.
	Driver string

	// DSN is the sqlite path (":memory:" allowed) or the postgres connection string.
	DSN string

	// Brokers and Topic configure the kafka driver.
	Brokers []string
	Topic   string
}

// Open returns the sink named by opts.Driver.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch strings.ToLower(opts.Driver) {
	case "", DriverNop:
		return NewNop(), nil

	case DriverSQLite:
		if opts.DSN == "" {
			return nil, fmt.Errorf("sqlite sink requires a dsn")
		}
		return NewSQLite(ctx, opts.DSN)

	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres sink requires a dsn")
		}
		return NewPostgres(ctx, opts.DSN)

	case DriverKafka:
		return NewKafka(opts.Brokers, opts.Topic)

	default:
		return nil, fmt.Errorf("unknown sink driver: %q (available: %s)", opts.Driver, strings.Join(Drivers(), ", "))
	}
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{DriverNop, DriverSQLite, DriverPostgres, DriverKafka}
}

// SplitBrokers splits a comma separated broker list, dropping blanks.
func SplitBrokers(s string) []string {
	var out []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
