// Package tailcmder provides the tail command.
package tailcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/logger"
	"github.com/papercomputeco/ssetap/pkg/sink"
	"github.com/papercomputeco/ssetap/pkg/sink/worker"
	"github.com/papercomputeco/ssetap/pkg/tail"
)

type tailCommander struct {
	url         string
	format      string
	terminateOn string
	doneData    string
	lastEventID string
	record      string
	headers     []string
	preset      string
	noColor     bool
	logFile     string
	debug       bool

	sinkDriver    string
	sinkDSN       string
	sinkBrokers   string
	sinkTopic     string
	sinkWorkers   uint
	sinkQueueSize uint

	logger *slog.Logger
}

const tailLongDesc string = `Tail a Server-Sent Events endpoint.

Connects to the URL with "Accept: text/event-stream", parses the stream and
prints each event as it arrives. The tail ends when the server closes the
stream, when an event listed in --terminate-on arrives, when an event's data
equals --done-data, or on Ctrl-C.

Events can also be written to a sink (sqlite, postgres or kafka) and the raw
stream can be recorded to a file for "ssetap serve".

Examples:
  ssetap tail http://localhost:8090/events
  ssetap tail https://api.example.com/stream -H "Authorization: Bearer $TOKEN"
  ssetap tail http://localhost:8090/events --preset anthropic -f json
  ssetap tail http://localhost:8090/events --sink sqlite --sink-dsn events.db`

const tailShortDesc string = "Tail a Server-Sent Events endpoint"

var tailFlags = []string{
	config.FlagFormat,
	config.FlagTerminateOn,
	config.FlagDoneData,
	config.FlagLastEventID,
	config.FlagRecord,
	config.FlagSinkDriver,
	config.FlagSinkDSN,
	config.FlagSinkBrokers,
	config.FlagSinkTopic,
	config.FlagSinkWorkers,
	config.FlagSinkQueueSize,
}

func NewTailCmd() *cobra.Command {
	cmder := &tailCommander{}

	cmd := &cobra.Command{
		Use:   "tail [url]",
		Short: tailShortDesc,
		Long:  tailLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Registry, tailFlags)

			cmder.url = v.GetString("tail.url")
			if len(args) == 1 {
				cmder.url = args[0]
			}
			if cmder.url == "" {
				return errors.New("no url: pass one as an argument or set tail.url")
			}

			cmder.format = v.GetString("tail.format")
			cmder.terminateOn = v.GetString("tail.terminate_on")
			cmder.doneData = v.GetString("tail.done_data")
			cmder.lastEventID = v.GetString("tail.last_event_id")
			cmder.record = v.GetString("tail.record")
			cmder.sinkDriver = v.GetString("sink.driver")
			cmder.sinkDSN = v.GetString("sink.dsn")
			cmder.sinkBrokers = v.GetString("sink.brokers")
			cmder.sinkTopic = v.GetString("sink.topic")
			cmder.sinkWorkers = v.GetUint("sink.workers")
			cmder.sinkQueueSize = v.GetUint("sink.queue_size")

			if cmder.preset != "" {
				preset, err := config.PresetConfig(cmder.preset)
				if err != nil {
					return err
				}
				cmder.applyPreset(preset, cmd.Flags().Changed(config.Registry[config.FlagFormat].Name))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	config.AddStringFlag(cmd, config.Registry, config.FlagFormat, &cmder.format)
	config.AddStringFlag(cmd, config.Registry, config.FlagTerminateOn, &cmder.terminateOn)
	config.AddStringFlag(cmd, config.Registry, config.FlagDoneData, &cmder.doneData)
	config.AddStringFlag(cmd, config.Registry, config.FlagLastEventID, &cmder.lastEventID)
	config.AddStringFlag(cmd, config.Registry, config.FlagRecord, &cmder.record)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkDriver, &cmder.sinkDriver)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkDSN, &cmder.sinkDSN)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkBrokers, &cmder.sinkBrokers)
	config.AddStringFlag(cmd, config.Registry, config.FlagSinkTopic, &cmder.sinkTopic)
	config.AddUintFlag(cmd, config.Registry, config.FlagSinkWorkers, &cmder.sinkWorkers)
	config.AddUintFlag(cmd, config.Registry, config.FlagSinkQueueSize, &cmder.sinkQueueSize)

	cmd.Flags().StringArrayVarP(&cmder.headers, "header", "H", nil, `Extra request header as "Key: Value" (repeatable)`)
	cmd.Flags().StringVarP(&cmder.preset, "preset", "p", "", "Apply provider defaults ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&cmder.noColor, "no-color", false, "Disable styled output")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// applyPreset fills settings the user left empty. An explicit --format wins.
func (c *tailCommander) applyPreset(preset *config.Config, formatChanged bool) {
	if !formatChanged {
		c.format = preset.Tail.Format
	}
	if c.terminateOn == "" {
		c.terminateOn = preset.Tail.TerminateOn
	}
	if c.doneData == "" {
		c.doneData = preset.Tail.DoneData
	}
}

func (c *tailCommander) run(ctx context.Context, out, errOut io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closeLog func()
	var err error
	c.logger, closeLog, err = logger.ForCLI(errOut, c.debug, c.logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	header, err := parseHeaders(c.headers)
	if err != nil {
		return err
	}

	opts := tail.Options{
		URL:         c.url,
		Header:      header,
		LastEventID: c.lastEventID,
		TerminateOn: splitList(c.terminateOn),
		DoneData:    c.doneData,
		Format:      tail.Format(c.format),
		Logger:      c.logger,
	}
	if c.noColor {
		opts.Color = new(bool)
	}

	if c.record != "" {
		f, err := os.Create(c.record)
		if err != nil {
			return fmt.Errorf("creating record file: %w", err)
		}
		defer f.Close()
		opts.Record = f
	}

	pool, err := c.newPool(ctx)
	if err != nil {
		return err
	}
	if pool != nil {
		defer func() {
			if err := pool.Close(); err != nil {
				c.logger.Warn("closing sink", "error", err)
			}
		}()
		opts.Pool = pool
	}

	t, err := tail.New(opts)
	if err != nil {
		return err
	}

	stats, err := t.Run(ctx, out)
	fmt.Fprintf(errOut, "\n  %s %s\n", cliui.Mark(err), cliui.DimStyle.Render(tail.Summary(stats)))
	return err
}

func (c *tailCommander) newPool(ctx context.Context) (*worker.Pool, error) {
	pool, err := worker.Open(ctx, sink.Options{
		Driver:  c.sinkDriver,
		DSN:     c.sinkDSN,
		Brokers: sink.SplitBrokers(c.sinkBrokers),
		Topic:   c.sinkTopic,
	}, worker.Config{
		NumWorkers: c.sinkWorkers,
		QueueSize:  c.sinkQueueSize,
		Logger:     c.logger,
	})
	if err != nil || pool == nil {
		return nil, err
	}

	c.logger.Info("sink enabled", "driver", c.sinkDriver, "workers", c.sinkWorkers)
	return pool, nil
}

// parseHeaders turns "Key: Value" strings into an http.Header.
func parseHeaders(values []string) (http.Header, error) {
	header := http.Header{}
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, ":")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid header %q: expected \"Key: Value\"", raw)
		}
		header.Add(key, strings.TrimSpace(value))
	}
	return header, nil
}

func splitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
