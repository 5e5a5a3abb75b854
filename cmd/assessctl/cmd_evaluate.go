package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/bootstrap"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/evaluation"
)

type evaluateOptions struct {
	casesPath       string
	catalogPath     string
	offline         bool
	concurrency     int
	jsonOutput      bool
	minAccuracy     float64
	maxMAE          float64
	maxFallbackRate float64
}

func newEvaluateCommand() *cobra.Command {
	var opts evaluateOptions

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Benchmark the response interpreter against labeled answers",
		Long: `Interpret every labeled answer with the configured interpreter and compare
the result with the clinician's score. Reports accuracy, mean absolute error,
fallback and clarification rates overall and per scale.

Exits with code 1 when a guardrail threshold is missed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.casesPath, "cases", "", "Labeled answers file (JSON or YAML); defaults to the built-in set")
	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog file")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the keyword interpreter even when OPENAI_API_KEY is set")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Interpreter calls in flight")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the full summary as JSON")
	cmd.Flags().Float64Var(&opts.minAccuracy, "min-accuracy", 0, "Fail below this exact-match accuracy")
	cmd.Flags().Float64Var(&opts.maxMAE, "max-mae", 0, "Fail above this mean absolute error")
	cmd.Flags().Float64Var(&opts.maxFallbackRate, "max-fallback-rate", 0, "Fail above this fallback rate")

	return cmd
}

func runEvaluate(cmd *cobra.Command, opts evaluateOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cases, err := loadCases(opts.casesPath)
	if err != nil {
		return err
	}
	if err := evaluation.ValidateLabeledAnswers(cases); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.catalogPath, opts.offline)
	if err != nil {
		return err
	}
	questions, err := bootstrap.LoadCatalog(ctx, cfg, nil, logger())
	if err != nil {
		return err
	}

	guardrails := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MinAccuracy:          opts.minAccuracy,
		MaxMeanAbsoluteError: opts.maxMAE,
		MaxFallbackRate:      opts.maxFallbackRate,
	})
	if err := guardrails.CheckCases(cases, questions); err != nil {
		return err
	}

	interpreter := services.NewInterpretationService(bootstrap.Interpreter(cfg, logger()), services.InterpretationConfig{
		Timeout:  cfg.Assessment.InterpreterTimeout,
		Attempts: cfg.Assessment.InterpreterRetries + 1,
	})
	runner := evaluation.NewRunner(interpreter, questions)
	runner.SetConcurrency(opts.concurrency)

	summary, err := runner.Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(out, summary)
	}

	if violations := guardrails.Violations(summary); len(violations) > 0 {
		for _, v := range violations {
			fmt.Fprintf(cmd.ErrOrStderr(), "guardrail: %s\n", v)
		}
		return &GuardrailError{Violations: violations}
	}
	return nil
}

func loadCases(path string) ([]evaluation.LabeledAnswer, error) {
	if path == "" {
		return evaluation.DefaultLabeledAnswers()
	}
	return evaluation.LoadLabeledAnswers(path)
}

func printSummary(w io.Writer, s *evaluation.EvalSummary) {
	fmt.Fprintf(w, "Cases:              %d\n", s.Total)
	fmt.Fprintf(w, "Accuracy:           %.3f\n", s.Accuracy)
	fmt.Fprintf(w, "Mean abs. error:    %.3f\n", s.MeanAbsoluteError)
	fmt.Fprintf(w, "Fallback rate:      %.3f\n", s.FallbackRate)
	fmt.Fprintf(w, "Clarification rate: %.3f\n", s.ClarificationRate)
	fmt.Fprintf(w, "Avg. confidence:    %.3f\n", s.AvgConfidence)
	fmt.Fprintf(w, "Avg. latency:       %s\n\n", s.AvgLatency)

	scales := make([]entities.AssessmentType, 0, len(s.ByScale))
	for scale := range s.ByScale {
		scales = append(scales, scale)
	}
	sort.Slice(scales, func(i, j int) bool { return scales[i] > scales[j] }) // IADL before ADL

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCALE\tCASES\tACCURACY\tMAE\tFALLBACK")
	for _, scale := range scales {
		ss := s.ByScale[scale]
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\t%.3f\n", scale, ss.Count, ss.Accuracy, ss.MeanAbsoluteError, ss.FallbackRate)
	}
	_ = tw.Flush()

	var misses []evaluation.EvalResult
	for _, r := range s.Results {
		if !r.Correct() {
			misses = append(misses, r)
		}
	}
	if len(misses) == 0 {
		return
	}
	fmt.Fprintln(w, "\nMismatches:")
	for _, r := range misses {
		fmt.Fprintf(w, "  %s (%s): expected %d, got %d", r.CaseID, r.QuestionCode, r.Expected, r.Predicted)
		if r.Fallback {
			fmt.Fprintf(w, " [fallback: %s]", r.FailureReason)
		}
		fmt.Fprintln(w)
	}
}
