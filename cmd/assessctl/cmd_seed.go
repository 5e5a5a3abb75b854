package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/catalog"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/database"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
)

func newSeedCommand() *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the question catalog into the database",
		Long: `Upsert every question of the catalog, with its answer options, into the
questions tables. Uses the built-in Lawton and Barthel catalog unless
--catalog names a YAML file. Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := openCatalog(catalogPath)
			if err != nil {
				return err
			}
			return withDatabase(func(client *postgres.Client) error {
				return seedQuestions(cmd.Context(), cmd.OutOrStdout(), source, database.NewQuestionAdapter(client))
			})
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog file")

	return cmd
}

func openCatalog(path string) (*catalog.YAMLQuestionAdapter, error) {
	if path == "" {
		return catalog.NewStandardQuestionAdapter()
	}
	return catalog.NewYAMLQuestionAdapterFromFile(path)
}

func seedQuestions(ctx context.Context, w io.Writer, source *catalog.YAMLQuestionAdapter, store repositories.QuestionWriter) error {
	count := 0
	for _, q := range source.All() {
		if err := store.Upsert(ctx, q); err != nil {
			return fmt.Errorf("failed to seed %s: %w", q.Code, err)
		}
		count++
	}
	fmt.Fprintf(w, "Seeded %d questions\n", count)
	return nil
}
