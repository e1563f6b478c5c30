package main

import (
	"github.com/spf13/cobra"

	"github.com/tsawler/pdfthumb/config"
	"github.com/tsawler/pdfthumb/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

// app carries the settings shared by every subcommand.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pdfthumb",
		Short: "Render first-page thumbnails of PDF documents",
		Long: "pdfthumb renders the first page of each PDF to a fixed-size image in the\n" +
			"thumbnail directory and prints the public path it is served from.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		Version:           version,
		PersistentPreRunE: a.load,
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML configuration file (defaults apply when empty)")
	f.StringVar(&a.logLevel, "log-level", "", "override log_level (debug, info, warn, error)")

	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newPathCmd(a))
	return root
}

// load reads the configuration and installs the logger.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.LogFormat, cmd.ErrOrStderr())
	a.cfg = cfg
	return nil
}
