package evaluation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

const defaultConcurrency = 4

// Runner scores a labeled answer set with an interpreter.
type Runner struct {
	interpreter services.AnswerInterpreter
	questions   QuestionLookup
	concurrency int
}

func NewRunner(interpreter services.AnswerInterpreter, questions QuestionLookup) *Runner {
	return &Runner{interpreter: interpreter, questions: questions, concurrency: defaultConcurrency}
}

// SetConcurrency bounds the number of interpreter calls in flight
func (r *Runner) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

// Run interprets every case. Results keep the order of cases. Interpreter
// failures are scored as fallbacks, not returned as errors.
func (r *Runner) Run(ctx context.Context, cases []LabeledAnswer) (*EvalSummary, error) {
	results := make([]EvalResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, c := range cases {
		q, ok := r.questions.Lookup(c.QuestionCode)
		if !ok {
			return nil, fmt.Errorf("case %q: unknown question code %q", c.ID, c.QuestionCode)
		}

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			outcome := r.interpreter.Interpret(gctx, q, c.Answer)
			results[i] = EvalResult{
				CaseID:             c.ID,
				QuestionCode:       c.QuestionCode,
				AssessmentType:     q.AssessmentType,
				Expected:           c.ExpectedScore,
				Predicted:          outcome.Interpretation.InterpretedScore,
				Confidence:         outcome.Interpretation.Confidence,
				Fallback:           outcome.Fallback,
				NeedsClarification: outcome.Interpretation.NeedsClarification,
				FailureReason:      outcome.FailureReason,
				Latency:            time.Since(start),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Summarize(results), nil
}

// Summarize aggregates results overall and per scale
func Summarize(results []EvalResult) *EvalSummary {
	s := &EvalSummary{
		Total:             len(results),
		Accuracy:          Accuracy(results),
		MeanAbsoluteError: MeanAbsoluteError(results),
		FallbackRate:      FallbackRate(results),
		ClarificationRate: ClarificationRate(results),
		ByScale:           make(map[entities.AssessmentType]*ScaleSummary),
		Results:           results,
	}
	if len(results) == 0 {
		return s
	}

	byScale := make(map[entities.AssessmentType][]EvalResult)
	var latency time.Duration
	for _, res := range results {
		s.AvgConfidence += res.Confidence
		latency += res.Latency
		byScale[res.AssessmentType] = append(byScale[res.AssessmentType], res)
	}
	s.AvgConfidence /= float64(len(results))
	s.AvgLatency = latency / time.Duration(len(results))

	for scale, scaleResults := range byScale {
		s.ByScale[scale] = &ScaleSummary{
			Count:             len(scaleResults),
			Accuracy:          Accuracy(scaleResults),
			MeanAbsoluteError: MeanAbsoluteError(scaleResults),
			FallbackRate:      FallbackRate(scaleResults),
			ClarificationRate: ClarificationRate(scaleResults),
		}
	}
	return s
}
