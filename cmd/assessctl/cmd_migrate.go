package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/functional-assessment/backend/pkg/config"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the assessment database schema",
		Long: `Apply or roll back the embedded schema migrations against the database
named by the DB_* environment variables.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(client *postgres.Client) error {
				if err := client.MigrateUp(); err != nil {
					return err
				}
				return printVersion(cmd, client)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			return withDatabase(func(client *postgres.Client) error {
				if err := client.MigrateDown(steps); err != nil {
					return err
				}
				return printVersion(cmd, client)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func(client *postgres.Client) error {
				return printVersion(cmd, client)
			})
		},
	})

	return cmd
}

func withDatabase(fn func(client *postgres.Client) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := postgres.NewClient(&cfg.Database, logger())
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func printVersion(cmd *cobra.Command, client *postgres.Client) error {
	version, dirty, err := client.MigrationVersion()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", version, state)
	return nil
}
