package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

func TestQuestionCatalog_Shape(t *testing.T) {
	c := standardCatalog(t)

	assert.Equal(t, 18, c.TotalQuestions())
	assert.Len(t, c.IADLQuestions(), 8)
	assert.Len(t, c.ADLQuestions(), 10)
	assert.Equal(t, 8, c.MaxScore(entities.AssessmentTypeIADL))
	assert.Equal(t, 100, c.MaxScore(entities.AssessmentTypeADL))

	start, end, ok := c.PhaseBounds(entities.PhaseADL)
	require.True(t, ok)
	assert.Equal(t, 8, start)
	assert.Equal(t, 18, end)

	_, _, ok = c.PhaseBounds(entities.PhaseWelcome)
	assert.False(t, ok)
}

func TestQuestionCatalog_QuestionAtPhaseBoundary(t *testing.T) {
	c := standardCatalog(t)

	last, err := c.QuestionAt(entities.PhaseIADL, 7)
	require.NoError(t, err)
	assert.Equal(t, "LAWTON_FINANCES", last.Code)

	first, err := c.QuestionAt(entities.PhaseADL, 8)
	require.NoError(t, err)
	assert.Equal(t, "BARTHEL_BOWELS", first.Code)

	final, err := c.QuestionAt(entities.PhaseADL, 17)
	require.NoError(t, err)
	assert.Equal(t, "BARTHEL_BATHING", final.Code)

	for _, tc := range []struct {
		phase entities.Phase
		index int
	}{
		{entities.PhaseIADL, 8},
		{entities.PhaseIADL, -1},
		{entities.PhaseADL, 7},
		{entities.PhaseADL, 18},
		{entities.PhaseWelcome, 0},
		{entities.PhaseComplete, 18},
	} {
		_, err := c.QuestionAt(tc.phase, tc.index)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeTransition), "%s/%d", tc.phase, tc.index)
	}
}

func TestQuestionCatalog_QuestionAtIsPure(t *testing.T) {
	c := standardCatalog(t)

	a, err := c.QuestionAt(entities.PhaseADL, 12)
	require.NoError(t, err)
	b, err := c.QuestionAt(entities.PhaseADL, 12)
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestQuestionCatalog_Lookup(t *testing.T) {
	c := standardCatalog(t)

	q, ok := c.Lookup("BARTHEL_STAIRS")
	require.True(t, ok)
	assert.Equal(t, entities.AssessmentTypeADL, q.AssessmentType)

	_, ok = c.Lookup("UNKNOWN")
	assert.False(t, ok)
}

func TestNewQuestionCatalog_Validation(t *testing.T) {
	iadl := &entities.Question{Code: "I1", AssessmentType: entities.AssessmentTypeIADL, Answers: []entities.AnswerOption{{ClinicalScore: 1}}}
	adl := &entities.Question{Code: "A1", AssessmentType: entities.AssessmentTypeADL, Answers: []entities.AnswerOption{{ClinicalScore: 5}}}

	_, err := services.NewQuestionCatalog(nil, []*entities.Question{adl})
	assert.Error(t, err)

	_, err = services.NewQuestionCatalog([]*entities.Question{adl}, []*entities.Question{adl})
	assert.Error(t, err)

	dup := &entities.Question{Code: "I1", AssessmentType: entities.AssessmentTypeADL, Answers: adl.Answers}
	_, err = services.NewQuestionCatalog([]*entities.Question{iadl}, []*entities.Question{dup})
	assert.Error(t, err)

	c, err := services.NewQuestionCatalog([]*entities.Question{iadl}, []*entities.Question{adl})
	require.NoError(t, err)
	assert.Equal(t, 2, c.TotalQuestions())
}

type brokenRepo struct{}

func (brokenRepo) ListByType(context.Context, entities.AssessmentType) ([]*entities.Question, error) {
	return nil, errors.New("db down")
}

func (brokenRepo) GetByCode(context.Context, string) (*entities.Question, error) {
	return nil, errors.New("db down")
}

func TestLoadQuestionCatalog_RepositoryError(t *testing.T) {
	_, err := services.LoadQuestionCatalog(context.Background(), brokenRepo{})
	assert.ErrorContains(t, err, "db down")
}
