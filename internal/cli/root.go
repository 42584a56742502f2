// Package cli implements the megabot command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/linsalefe/mega-api-whatsapp-ai/internal/config"
	"github.com/linsalefe/mega-api-whatsapp-ai/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths config.Paths
	log   *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "megabot",
		Short: "megabot — WhatsApp AI assistant over the MEGA API gateway",
		Long:  "megabot answers WhatsApp messages with an LLM, grounding replies in an ingested knowledge base when one is available.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level, "pretty")
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.megabot/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig loads the config file and rebuilds the logger with the
// configured level and style, keeping an explicit --log-level override.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return cfg, err
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	log = logging.New(nil, level, cfg.Logging.Style)
	return cfg, nil
}
