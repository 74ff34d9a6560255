// Package proxycmder provides the tap proxy command.
package proxycmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sink"
	"github.com/papercomputeco/ssetap/pkg/sink/worker"
	"github.com/papercomputeco/ssetap/pkg/tap"
)

type proxyCommander struct {
	listen   string
	upstream string
	debug    bool
	logFile  string

	sinkDriver    string
	sinkDSN       string
	sinkBrokers   string
	sinkTopic     string
	sinkWorkers   uint
	sinkQueueSize uint

	logger *slog.Logger
}

const proxyLongDesc string = `Run a transparent proxy that taps Server-Sent Events.

Every request is forwarded to --upstream. Responses served as
text/event-stream reach the client unchanged while each event is parsed and
written to the configured sink. Other responses pass straight through.

Examples:
  ssetap proxy --upstream https://api.anthropic.com --sink sqlite --sink-dsn events.db
  ssetap proxy -u http://localhost:8090 -l :8091 --sink kafka --sink-brokers localhost:9092`

const proxyShortDesc string = "Tap SSE responses through a transparent proxy"

var proxyFlags = []string{
	config.FlagProxyListen,
	config.FlagUpstream,
	config.FlagSinkDriver,
	config.FlagSinkDSN,
	config.FlagSinkBrokers,
	config.FlagSinkTopic,
	config.FlagSinkWorkers,
	config.FlagSinkQueueSize,
}

func NewProxyCmd() *cobra.Command {
	cmder := &proxyCommander{}

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: proxyShortDesc,
		Long:  proxyLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Registry, proxyFlags)

			cmder.listen = v.GetString("proxy.listen")
			cmder.upstream = v.GetString("proxy.upstream")
			cmder.sinkDriver = v.GetString("sink.driver")
			cmder.sinkDSN = v.GetString("sink.dsn")
			cmder.sinkBrokers = v.GetString("sink.brokers")
			cmder.sinkTopic = v.GetString("sink.topic")
			cmder.sinkWorkers = v.GetUint("sink.workers")
			cmder.sinkQueueSize = v.GetUint("sink.queue_size")

			if cmder.upstream == "" {
				return errors.New("no upstream: pass --upstream or set proxy.upstream")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagProxyListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkDriver, &cmder.sinkDriver)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkDSN, &cmder.sinkDSN)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkBrokers, &cmder.sinkBrokers)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkTopic, &cmder.sinkTopic)
	config.AddUintFlag(cmd, config.Registry, config.FlagSinkWorkers, &cmder.sinkWorkers)
	config.AddUintFlag(cmd, config.Registry, config.FlagSinkQueueSize, &cmder.sinkQueueSize)

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *proxyCommander) run(ctx context.Context, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var closeLog func()
	var err error
	c.logger, closeLog, err = logger.ForCLI(errOut, c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *worker.Pool
	err = cliui.Step(errOut, "Opening "+c.sinkDriver+" sink", func() error {
		var err error
		pool, err = worker.Open(ctx, sink.Options{
			Driver:  c.sinkDriver,
			DSN:     c.sinkDSN,
			Brokers: sink.SplitBrokers(c.sinkBrokers),
			Topic:   c.sinkTopic,
		}, worker.Config{
			NumWorkers: c.sinkWorkers,
			QueueSize:  c.sinkQueueSize,
			Logger:     c.logger,
		})
		return err
	})
	if err != nil {
		return err
	}

	if pool != nil {
		defer c.closePool(pool)
	}

	t, err := tap.New(tap.Config{
		ListenAddr:  c.listen,
		UpstreamURL: c.upstream,
		Pool:        pool,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := t.Close(); err != nil {
			c.logger.Warn("shutting down tap proxy", "error", err)
		}
	}()

	fmt.Fprintf(errOut, "  %s %s\n", cliui.KeyStyle.Render("tapping"), cliui.ValueStyle.Render(t.String()))
	err = t.Run()

	// Run returns as soon as the listener closes; Close waits for open
	// streams to stop enqueueing before the pool is closed.
	if cerr := t.Close(); cerr != nil {
		c.logger.Warn("shutting down tap proxy", "error", cerr)
	}
	return err
}

func (c *proxyCommander) closePool(pool *worker.Pool) {
	if err := pool.Close(); err != nil {
		c.logger.Warn("closing sink", "error", err)
	}
	stats := pool.Stats()
	c.logger.Info("sink closed",
		"written", stats.Written,
		"failed", stats.Failed,
		"dropped", stats.Dropped,
	)
}
