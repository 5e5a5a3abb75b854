package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/events"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/locks"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/memory"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/reports"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/bootstrap"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

type interviewOptions struct {
	catalogPath string
	patientID   string
	offline     bool
	reportPath  string
}

func newInterviewCommand() *cobra.Command {
	var opts interviewOptions

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run an assessment interview in the terminal",
		Long: `Run one assessment interview on standard input and output. Each line you
type is one answer. The session lives in memory and ends when the interview
completes or input closes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterview(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "", "YAML catalog file")
	cmd.Flags().StringVar(&opts.patientID, "patient", "", "Patient identifier recorded on the session")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the keyword interpreter even when OPENAI_API_KEY is set")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write a PDF report here when the interview completes")

	return cmd
}

func runInterview(cmd *cobra.Command, opts interviewOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(opts.catalogPath, opts.offline)
	if err != nil {
		return err
	}
	questions, err := bootstrap.LoadCatalog(ctx, cfg, nil, logger())
	if err != nil {
		return err
	}

	store := memory.NewSessionStore()
	bus := events.NewMemoryEventBus(logger())
	defer bus.Close()

	service := services.NewAssessmentService(
		bootstrap.Orchestrator(cfg, questions, nil, logger()),
		services.AssessmentStores{Sessions: store, Messages: store, Scores: store},
		locks.NewLocalLocker(),
		bus,
	)
	service.SetLogger(logger())
	if opts.reportPath != "" {
		renderer, err := reports.NewPDFReportRenderer(cfg.Report.FontPath)
		if err != nil {
			return fmt.Errorf("report requested but renderer unavailable: %w", err)
		}
		service.SetReportRenderer(renderer)
	}

	turn, err := service.CreateSession(ctx, opts.patientID, map[string]string{"channel": "terminal"})
	if err != nil {
		return err
	}
	sessionID := turn.Session.ID
	printTurn(out, turn)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for turn.ShouldContinue {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Input closed; the interview was not completed.")
			return scanner.Err()
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			continue
		}

		turn, err = service.Respond(ctx, sessionID, answer)
		if err != nil {
			return err
		}
		printTurn(out, turn)
	}

	if turn.State == entities.StateCompleted && turn.Scores != nil {
		printScores(out, turn.Scores)
		if opts.reportPath != "" {
			return writeReport(cmd, service, sessionID, opts.reportPath)
		}
	}
	return nil
}

func printTurn(w io.Writer, turn *services.TurnResult) {
	fmt.Fprintln(w)
	if turn.Progress != "" && turn.ShouldContinue {
		fmt.Fprintf(w, "[%s] ", turn.Progress)
	}
	fmt.Fprintln(w, turn.Message)
}

func printScores(w io.Writer, scores *entities.AssessmentScores) {
	fmt.Fprintln(w)
	for _, s := range []entities.ScaleScore{scores.IADL, scores.ADL} {
		fmt.Fprintf(w, "%-4s %3d/%-3d %5.1f%%  %s\n", s.AssessmentType, s.Total, s.MaxScore, s.Percentage, s.Interpretation)
	}
	fmt.Fprintf(w, "Overall confidence %.2f, %d low-confidence responses, %d clarifications\n",
		scores.OverallConfidence, scores.LowConfidenceResponses, scores.ClarificationsNeeded)
}

func writeReport(cmd *cobra.Command, service *services.AssessmentService, sessionID, path string) error {
	pdf, _, err := service.RenderReport(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}
