package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/pkg/logging"
)

var (
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "settleup",
		Short:         "Shared expense balances and settle-up reminders",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional outside local development.
			_ = godotenv.Load()

			if configPath == "" {
				configPath = os.Getenv("SETTLEUP_CONFIG")
			}
			if configPath == "" {
				configPath = "config.yaml"
			}

			loaded, err := config.Load(configPath)
			if err != nil {
				slog.Error("Failed to load configuration", "path", configPath, "error", err)
				return err
			}
			cfg = loaded
			logger = logging.Setup(cfg.Log.Level)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (default $SETTLEUP_CONFIG or config.yaml)")
	root.AddCommand(serveCmd(), remindCmd())
	return root
}
