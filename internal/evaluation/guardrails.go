package evaluation

import (
	"fmt"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// QuestionLookup resolves catalog questions by code
type QuestionLookup interface {
	Lookup(code string) (*entities.Question, bool)
}

// GuardrailConfig sets the bar an interpreter has to clear. Zero values disable a check.
type GuardrailConfig struct {
	MinAccuracy          float64
	MaxMeanAbsoluteError float64
	MaxFallbackRate      float64
}

// Guardrails rejects invalid labeled sets and failing evaluation runs
type Guardrails struct {
	config GuardrailConfig
}

func NewGuardrails(config GuardrailConfig) *Guardrails {
	return &Guardrails{config: config}
}

// CheckCases rejects sets with unknown question codes or expectations that
// are not a score of the question's answer options.
func (g *Guardrails) CheckCases(cases []LabeledAnswer, questions QuestionLookup) error {
	for _, c := range cases {
		q, ok := questions.Lookup(c.QuestionCode)
		if !ok {
			return fmt.Errorf("case %q: unknown question code %q", c.ID, c.QuestionCode)
		}
		if !q.AcceptsScore(c.ExpectedScore) {
			return fmt.Errorf("case %q: expected score %d is not an option score of %s", c.ID, c.ExpectedScore, q.Code)
		}
	}
	return nil
}

// Violations lists every threshold the summary misses; empty means the run passes.
func (g *Guardrails) Violations(s *EvalSummary) []string {
	var out []string
	if g.config.MinAccuracy > 0 && s.Accuracy < g.config.MinAccuracy {
		out = append(out, fmt.Sprintf("accuracy %.3f below minimum %.3f", s.Accuracy, g.config.MinAccuracy))
	}
	if g.config.MaxMeanAbsoluteError > 0 && s.MeanAbsoluteError > g.config.MaxMeanAbsoluteError {
		out = append(out, fmt.Sprintf("mean absolute error %.3f above maximum %.3f", s.MeanAbsoluteError, g.config.MaxMeanAbsoluteError))
	}
	if g.config.MaxFallbackRate > 0 && s.FallbackRate > g.config.MaxFallbackRate {
		out = append(out, fmt.Sprintf("fallback rate %.3f above maximum %.3f", s.FallbackRate, g.config.MaxFallbackRate))
	}
	return out
}
