package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

type stubLookup map[string]*entities.Question

func (s stubLookup) Lookup(code string) (*entities.Question, bool) {
	q, ok := s[code]
	return q, ok
}

func telephoneLookup() stubLookup {
	return stubLookup{
		"LAWTON_TELEPHONE": {
			Code:           "LAWTON_TELEPHONE",
			AssessmentType: entities.AssessmentTypeIADL,
			Answers: []entities.AnswerOption{
				{Text: "Operates telephone on own initiative", ClinicalScore: 1, Order: 1},
				{Text: "Does not use telephone at all", ClinicalScore: 0, Order: 2},
			},
		},
	}
}

func TestGuardrails_CheckCases(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})

	err := g.CheckCases([]LabeledAnswer{
		{ID: "a", QuestionCode: "LAWTON_TELEPHONE", Answer: "yes", ExpectedScore: 1},
	}, telephoneLookup())
	assert.NoError(t, err)
}

func TestGuardrails_CheckCases_UnknownCode(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})

	err := g.CheckCases([]LabeledAnswer{
		{ID: "a", QuestionCode: "MMSE_1", Answer: "yes"},
	}, telephoneLookup())
	assert.ErrorContains(t, err, "unknown question code")
}

func TestGuardrails_CheckCases_ScoreNotAnOption(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})

	err := g.CheckCases([]LabeledAnswer{
		{ID: "a", QuestionCode: "LAWTON_TELEPHONE", Answer: "yes", ExpectedScore: 5},
	}, telephoneLookup())
	assert.ErrorContains(t, err, "not an option score")
}

func TestGuardrails_Violations(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{
		MinAccuracy:          0.8,
		MaxMeanAbsoluteError: 1.0,
		MaxFallbackRate:      0.1,
	})

	assert.Empty(t, g.Violations(&EvalSummary{Accuracy: 0.9, MeanAbsoluteError: 0.5, FallbackRate: 0.05}))

	violations := g.Violations(&EvalSummary{Accuracy: 0.5, MeanAbsoluteError: 2.5, FallbackRate: 0.3})
	assert.Len(t, violations, 3)
	assert.Contains(t, violations[0], "accuracy")
	assert.Contains(t, violations[1], "mean absolute error")
	assert.Contains(t, violations[2], "fallback rate")
}

func TestGuardrails_ZeroConfigDisablesChecks(t *testing.T) {
	g := NewGuardrails(GuardrailConfig{})
	assert.Empty(t, g.Violations(&EvalSummary{Accuracy: 0, MeanAbsoluteError: 10, FallbackRate: 1}))
}
