package evaluation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/catalog"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// answerKey scores answers from a fixed table; unknown answers fall back.
type answerKey map[string]int

func (k answerKey) Interpret(_ context.Context, _ *entities.Question, answer string) services.InterpretationOutcome {
	score, ok := k[answer]
	if !ok {
		return services.InterpretationOutcome{
			Interpretation: entities.FallbackInterpretation("no key"),
			Fallback:       true,
			FailureReason:  "no key",
			Attempts:       1,
		}
	}
	return services.InterpretationOutcome{
		Interpretation: entities.ScoreInterpretation{InterpretedScore: score, Confidence: 0.9},
		Attempts:       1,
	}
}

func standardCatalog(t *testing.T) *services.QuestionCatalog {
	t.Helper()
	repo, err := catalog.NewStandardQuestionAdapter()
	require.NoError(t, err)
	c, err := services.LoadQuestionCatalog(context.Background(), repo)
	require.NoError(t, err)
	return c
}

func TestRunner_Run(t *testing.T) {
	cases := []LabeledAnswer{
		{ID: "tel", QuestionCode: "LAWTON_TELEPHONE", Answer: "I phone people", ExpectedScore: 1},
		{ID: "shop", QuestionCode: "LAWTON_SHOPPING", Answer: "my son shops", ExpectedScore: 0},
		{ID: "feed", QuestionCode: "BARTHEL_FEEDING", Answer: "I need some help", ExpectedScore: 5},
		{ID: "stairs", QuestionCode: "BARTHEL_STAIRS", Answer: "mumble", ExpectedScore: 10},
	}
	interpreter := answerKey{
		"I phone people":   1,
		"my son shops":     0,
		"I need some help": 10,
	}

	runner := NewRunner(interpreter, standardCatalog(t))
	runner.SetConcurrency(2)

	summary, err := runner.Run(context.Background(), cases)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Total)
	assert.InDelta(t, 0.5, summary.Accuracy, 1e-9)
	// feed off by 5, stairs falls back to 0 and is off by 10
	assert.InDelta(t, 3.75, summary.MeanAbsoluteError, 1e-9)
	assert.InDelta(t, 0.25, summary.FallbackRate, 1e-9)

	require.Len(t, summary.Results, 4)
	assert.Equal(t, "tel", summary.Results[0].CaseID)
	assert.Equal(t, entities.AssessmentTypeIADL, summary.Results[0].AssessmentType)
	assert.Equal(t, "no key", summary.Results[3].FailureReason)

	iadl := summary.ByScale[entities.AssessmentTypeIADL]
	require.NotNil(t, iadl)
	assert.Equal(t, 2, iadl.Count)
	assert.InDelta(t, 1.0, iadl.Accuracy, 1e-9)

	adl := summary.ByScale[entities.AssessmentTypeADL]
	require.NotNil(t, adl)
	assert.Equal(t, 2, adl.Count)
	assert.InDelta(t, 0.0, adl.Accuracy, 1e-9)
	assert.InDelta(t, 7.5, adl.MeanAbsoluteError, 1e-9)
}

func TestRunner_UnknownQuestionCode(t *testing.T) {
	runner := NewRunner(answerKey{}, standardCatalog(t))

	_, err := runner.Run(context.Background(), []LabeledAnswer{
		{ID: "x", QuestionCode: "MMSE_1", Answer: "hello"},
	})
	assert.ErrorContains(t, err, "unknown question code")
}

func TestDefaultLabeledAnswers_MatchStandardCatalog(t *testing.T) {
	cases, err := DefaultLabeledAnswers()
	require.NoError(t, err)

	g := NewGuardrails(GuardrailConfig{})
	assert.NoError(t, g.CheckCases(cases, standardCatalog(t)))
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.Empty(t, s.ByScale)
}
