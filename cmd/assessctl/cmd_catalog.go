package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/bootstrap"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

func newCatalogCommand() *cobra.Command {
	var (
		catalogPath string
		format      string
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the question catalog",
		Long: `Print the questions the interview asks, in order, with the answer
options and clinical scores of each. Uses the built-in catalog unless
--catalog or ASSESSMENT_CATALOG_PATH names a YAML file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(catalogPath, true)
			if err != nil {
				return err
			}
			questions, err := bootstrap.LoadCatalog(cmd.Context(), cfg, nil, logger())
			if err != nil {
				return err
			}
			return printCatalog(cmd.OutOrStdout(), questions, format)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog file")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func printCatalog(w io.Writer, questions *services.QuestionCatalog, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(questions.All())
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(questions.All())
	case "text":
	default:
		return fmt.Errorf("unknown format %q (expected text, json or yaml)", format)
	}

	for _, scale := range []entities.AssessmentType{entities.AssessmentTypeIADL, entities.AssessmentTypeADL} {
		fmt.Fprintf(w, "%s (max %d)\n", scale, questions.MaxScore(scale))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, q := range scaleQuestions(questions, scale) {
			fmt.Fprintf(tw, "  %d\t%s\t%s\n", q.Sequence, q.Code, q.Text)
			for _, a := range q.Answers {
				fmt.Fprintf(tw, "\t\t  [%d] %s\n", a.ClinicalScore, a.Text)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

func scaleQuestions(questions *services.QuestionCatalog, scale entities.AssessmentType) []*entities.Question {
	if scale == entities.AssessmentTypeIADL {
		return questions.IADLQuestions()
	}
	return questions.ADLQuestions()
}
