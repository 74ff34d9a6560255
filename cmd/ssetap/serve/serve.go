// Package servecmder provides the replay server command.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/replay"
)

type serveCommander struct {
	listen     string
	fixture    string
	intervalMS uint
	watch      bool
	assignIDs  bool
	debug      bool
	logFile    string

	logger *slog.Logger
}

const serveLongDesc string = `Replay a recorded Server-Sent Events stream.

Serves the fixture on GET /events as text/event-stream, one frame every
--interval milliseconds. Clients that reconnect with a Last-Event-ID header
resume after that event. GET /healthz reports the number of loaded frames and
GET /frames lists them as JSON.

Record a fixture with "ssetap tail <url> --record stream.sse -f raw".

Examples:
  ssetap serve --fixture stream.sse
  ssetap serve --fixture stream.sse --interval 0 --watch --assign-ids`

const serveShortDesc string = "Replay a recorded SSE stream"

var serveFlags = []string{
	config.FlagServeListen,
	config.FlagFixture,
	config.FlagIntervalMS,
	config.FlagWatch,
	config.FlagAssignIDs,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Registry, serveFlags)

			cmder.listen = v.GetString("serve.listen")
			cmder.fixture = v.GetString("serve.fixture")
			cmder.intervalMS = v.GetUint("serve.interval_ms")
			cmder.watch = v.GetBool("serve.watch")
			cmder.assignIDs = v.GetBool("serve.assign_ids")

			if cmder.fixture == "" {
				return errors.New("no fixture: pass --fixture or set serve.fixture")
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

	config.AddStringFlag(cmd, config.Registry, config.FlagServeListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagFixture, &cmder.fixture)
	config.AddUintFlag(cmd, config.Registry, config.FlagIntervalMS, &cmder.intervalMS)
	config.AddBoolFlag(cmd, config.Registry, config.FlagWatch, &cmder.watch)
	config.AddBoolFlag(cmd, config.Registry, config.FlagAssignIDs, &cmder.assignIDs)

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context, errOut io.Writer) error {
	var closeLog func()
	var err error
	c.logger, closeLog, err = logger.ForCLI(errOut, c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *replay.Server
	err = cliui.Step(errOut, "Loading fixture "+c.fixture, func() error {
		var err error
		srv, err = replay.New(ctx, replay.Config{
			ListenAddr: c.listen,
			Fixture:    c.fixture,
			Interval:   time.Duration(c.intervalMS) * time.Millisecond,
			Watch:      c.watch,
			AssignIDs:  c.assignIDs,
			Logger:     c.logger,
		})
		return err
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := srv.Close(); err != nil {
			c.logger.Warn("shutting down replay server", "error", err)
		}
	}()

	return srv.Run()
}
