// Package ssetapcmder
package ssetapcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/ssetap/cmd/ssetap/config"
	proxycmder "github.com/papercomputeco/ssetap/cmd/ssetap/proxy"
	servecmder "github.com/papercomputeco/ssetap/cmd/ssetap/serve"
	tailcmder "github.com/papercomputeco/ssetap/cmd/ssetap/tail"
	versioncmder "github.com/papercomputeco/ssetap/cmd/version"
)

const ssetapLongDesc string = `ssetap tails and replays Server-Sent Events streams.

Follow a live stream, replay a recorded one, and persist what you see:
  ssetap tail <url>      Tail an SSE endpoint and print its events
  ssetap serve           Replay a recorded stream over HTTP
  ssetap proxy           Tap the SSE responses of an upstream through a proxy
  ssetap config          Manage persistent configuration`

const ssetapShortDesc string = "ssetap - Server-Sent Events tap"

func NewSsetapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ssetap",
		Short:        ssetapShortDesc,
		Long:         ssetapLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .ssetap/ config directory")

	// Add subcommands
	cmd.AddCommand(tailcmder.NewTailCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(proxycmder.NewProxyCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
