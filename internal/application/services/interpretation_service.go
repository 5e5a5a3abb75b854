package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
	"github.com/zatekoja/functional-assessment/backend/pkg/retry"
)

// InterpretationOutcome is always usable: on failure Interpretation holds the
// fallback reading and FailureReason says why.
type InterpretationOutcome struct {
	Interpretation entities.ScoreInterpretation
	Fallback       bool
	FailureReason  string
	Attempts       int
}

// AnswerInterpreter scores a free-text answer against a question
type AnswerInterpreter interface {
	Interpret(ctx context.Context, question *entities.Question, answer string) InterpretationOutcome
}

// InterpretationConfig bounds interpreter calls
type InterpretationConfig struct {
	Timeout  time.Duration
	Attempts int
}

// InterpretationService wraps a ResponseInterpreter with a timeout, retries
// for transient failures, range validation and the fallback interpretation.
type InterpretationService struct {
	interpreter providers.ResponseInterpreter
	cfg         InterpretationConfig
	metrics     *observability.Metrics
	logger      zerolog.Logger
}

// NewInterpretationService creates a new interpretation service
func NewInterpretationService(interpreter providers.ResponseInterpreter, cfg InterpretationConfig) *InterpretationService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &InterpretationService{
		interpreter: interpreter,
		cfg:         cfg,
		logger:      zerolog.Nop(),
	}
}

// SetLogger sets the logger used for fallback warnings
func (s *InterpretationService) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetMetrics enables interpreter metrics
func (s *InterpretationService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Interpret never fails. Any timeout, panic, malformed or out-of-range result
// yields entities.FallbackInterpretation.
func (s *InterpretationService) Interpret(ctx context.Context, question *entities.Question, answer string) InterpretationOutcome {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "interpretation.interpret")
	defer span.End()

	attempts := 0
	var interp entities.ScoreInterpretation

	err := retry.DoWithLog(ctx, retry.InterpreterConfig(s.cfg.Attempts), "interpreter", func() error {
		attempts++
		result := s.callOnce(ctx, question, answer)
		if !result.Ok() {
			failure := apperrors.NewInterpreterFailure(result.FailureReason, nil)
			if result.Transient {
				return failure
			}
			return retry.Permanent(failure)
		}
		validated, verr := validateInterpretation(question, result.Interpretation)
		if verr != nil {
			return retry.Permanent(verr)
		}
		interp = validated
		return nil
	}, func(attempt int, err error, next time.Duration) {
		s.logger.Debug().Err(err).Int("attempt", attempt).Dur("next_delay", next).
			Str("question_code", question.Code).Msg("retrying interpreter")
	})

	outcome := InterpretationOutcome{Interpretation: interp, Attempts: attempts}
	if err != nil {
		reason := failureReason(err)
		outcome = InterpretationOutcome{
			Interpretation: entities.FallbackInterpretation(reason),
			Fallback:       true,
			FailureReason:  reason,
			Attempts:       attempts,
		}
		observability.RecordError(span, err)
		s.logger.Warn().Err(err).Str("question_code", question.Code).Int("attempts", attempts).
			Msg("interpreter failed, using fallback interpretation")
	}

	observability.RecordInterpretation(ctx, s.metrics, string(question.AssessmentType), outcome.Fallback, time.Since(start))
	return outcome
}

// callOnce bounds a single interpreter call even if it ignores ctx
func (s *InterpretationService) callOnce(ctx context.Context, question *entities.Question, answer string) entities.InterpretationResult {
	if s.interpreter == nil {
		return entities.InterpretationFailed("no interpreter configured")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan entities.InterpretationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- entities.InterpretationFailed(fmt.Sprintf("interpreter panicked: %v", r))
			}
		}()
		done <- s.interpreter.InterpretResponse(callCtx, question, answer)
	}()

	select {
	case result := <-done:
		return result
	case <-callCtx.Done():
		if errors.Is(ctx.Err(), context.Canceled) {
			return entities.InterpretationFailed("request cancelled")
		}
		return entities.InterpretationUnavailable(fmt.Sprintf("interpreter timed out after %s", s.cfg.Timeout))
	}
}

func validateInterpretation(question *entities.Question, interp entities.ScoreInterpretation) (entities.ScoreInterpretation, error) {
	if !question.AcceptsScore(interp.InterpretedScore) {
		return interp, apperrors.NewInterpreterFailure(
			fmt.Sprintf("score %d is not a valid option for %s", interp.InterpretedScore, question.Code), nil)
	}
	if math.IsNaN(interp.Confidence) {
		return interp, apperrors.NewInterpreterFailure("confidence is not a number", nil)
	}
	interp.Confidence = math.Max(0, math.Min(1, interp.Confidence))
	interp.Reasoning = strings.TrimSpace(interp.Reasoning)
	interp.ClarificationQuestion = strings.TrimSpace(interp.ClarificationQuestion)
	return interp, nil
}

func failureReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeInterpreter {
		return appErr.Message
	}
	return err.Error()
}
