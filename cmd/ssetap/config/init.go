package configcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ssetap/pkg/cliui"
	"github.com/papercomputeco/ssetap/pkg/config"
	"github.com/papercomputeco/ssetap/pkg/dotdir"
)

const initLongDesc string = `Create a config file.

Writes config.toml with default values into ./.ssetap/ (or --config-dir).
A preset tunes the tail settings for a known provider's stream.

Examples:
  ssetap config init
  ssetap config init --preset openai
  ssetap config init --config-dir ~/.ssetap --force`

const initShortDesc string = "Create a config file"

func newInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runInit(cmd.OutOrStdout(), configDir, preset, force)
		},
	}

	cmd.Flags().StringVarP(&preset, "preset", "p", "", "Start from a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(out io.Writer, configDir, preset string, force bool) error {
	if configDir == "" {
		configDir = dotdir.DirName
	}

	cfg := config.NewDefaultConfig()
	if preset != "" {
		var err error
		cfg, err = config.PresetConfig(preset)
		if err != nil {
			return err
		}
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	target := cfger.GetTarget()
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", target)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking config file: %w", err)
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Wrote %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(target))
	return nil
}
