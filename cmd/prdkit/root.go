package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"prdkit/internal/config"
	"prdkit/internal/util"
)

// stderr receives structured logs.
var stderr io.Writer = os.Stderr

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "prdkit",
		Short: "prdkit - PRD drafting assistant",
		Long: `prdkit drafts product requirement document sections with a configurable
AI provider and stores PRD drafts through the drafts service.

Providers: openai, claude, gemini, local (Ollama) and mock (offline).`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default config.yaml when present)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	cmd.AddCommand(
		newGenerateCmd(opts),
		newTemplatesCmd(),
		newServeCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

// load reads configuration and initialises logging for a subcommand.
func (o *rootOptions) load() (config.FileConfig, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	util.InitLoggerTo(stderr, cfg.LogLevel)
	return cfg, nil
}
