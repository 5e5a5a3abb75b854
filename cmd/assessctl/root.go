package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
	"github.com/zatekoja/functional-assessment/backend/pkg/config"
	"github.com/zatekoja/functional-assessment/backend/pkg/secrets"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assessctl",
		Short: "Functional assessment operator tool",
		Long: `assessctl runs the Lawton IADL and Barthel ADL interview from a terminal,
prints the question catalog, benchmarks response interpreters against labeled
answers and manages the assessment database.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		observability.InitLogger("assessctl", "development", "warn")
		if *debugLogging {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}

	cmd.AddCommand(newInterviewCommand())
	cmd.AddCommand(newCatalogCommand())
	cmd.AddCommand(newEvaluateCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newSeedCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}

// loadConfig reads the environment configuration and applies command overrides
func loadConfig(catalogPath string, offline bool) (*config.Config, error) {
	if _, err := secrets.Apply(context.Background(), secrets.LoadConfigFromEnv()); err != nil {
		logger().Warn().Err(err).Msg("Failed to load secrets from Vault")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Assessment.CatalogPath = catalogPath
	}
	if offline {
		cfg.OpenAI.APIKey = ""
	}
	return cfg, nil
}

func logger() zerolog.Logger {
	return log.Logger
}
