package worker

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/ssetap/pkg/sink"
)

// Open opens the sink described by opts behind a new Pool. The nop driver
// returns a nil Pool and no error. c.Sink is ignored.
func Open(ctx context.Context, opts sink.Options, c Config) (*Pool, error) {
	if opts.Driver == "" || strings.EqualFold(opts.Driver, sink.DriverNop) {
		return nil, nil
	}

	s, err := sink.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening sink: %w", err)
	}

	c.Sink = s
	pool, err := NewPool(&c)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	return pool, nil
}
