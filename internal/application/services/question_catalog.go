package services

import (
	"context"
	"fmt"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

// QuestionCatalog is the ordered, read-only question bank used by a session.
// IADL questions occupy global indices [0, len(iadl)), ADL questions follow.
type QuestionCatalog struct {
	iadl   []*entities.Question
	adl    []*entities.Question
	byCode map[string]*entities.Question
}

// NewQuestionCatalog builds a catalog from the two ordered scales
func NewQuestionCatalog(iadl, adl []*entities.Question) (*QuestionCatalog, error) {
	if len(iadl) == 0 || len(adl) == 0 {
		return nil, apperrors.NewValidationError("catalog requires both IADL and ADL questions")
	}

	c := &QuestionCatalog{
		iadl:   append([]*entities.Question(nil), iadl...),
		adl:    append([]*entities.Question(nil), adl...),
		byCode: make(map[string]*entities.Question, len(iadl)+len(adl)),
	}

	for _, set := range []struct {
		questions []*entities.Question
		kind      entities.AssessmentType
	}{{c.iadl, entities.AssessmentTypeIADL}, {c.adl, entities.AssessmentTypeADL}} {
		for _, q := range set.questions {
			if q == nil || q.Code == "" {
				return nil, apperrors.NewValidationError("catalog question without code")
			}
			if q.AssessmentType != set.kind {
				return nil, apperrors.NewValidationError(fmt.Sprintf("question %s is %s, expected %s", q.Code, q.AssessmentType, set.kind))
			}
			if len(q.Answers) == 0 {
				return nil, apperrors.NewValidationError(fmt.Sprintf("question %s has no answer options", q.Code))
			}
			if _, dup := c.byCode[q.Code]; dup {
				return nil, apperrors.NewValidationError(fmt.Sprintf("duplicate question code %s", q.Code))
			}
			c.byCode[q.Code] = q
		}
	}

	return c, nil
}

// LoadQuestionCatalog reads both scales from a question repository
func LoadQuestionCatalog(ctx context.Context, repo repositories.QuestionRepository) (*QuestionCatalog, error) {
	iadl, err := repo.ListByType(ctx, entities.AssessmentTypeIADL)
	if err != nil {
		return nil, fmt.Errorf("failed to load IADL questions: %w", err)
	}
	adl, err := repo.ListByType(ctx, entities.AssessmentTypeADL)
	if err != nil {
		return nil, fmt.Errorf("failed to load ADL questions: %w", err)
	}
	return NewQuestionCatalog(iadl, adl)
}

// IADLQuestions returns the IADL scale in sequence order
func (c *QuestionCatalog) IADLQuestions() []*entities.Question {
	return append([]*entities.Question(nil), c.iadl...)
}

// ADLQuestions returns the ADL scale in sequence order
func (c *QuestionCatalog) ADLQuestions() []*entities.Question {
	return append([]*entities.Question(nil), c.adl...)
}

// All returns every question in global index order
func (c *QuestionCatalog) All() []*entities.Question {
	all := make([]*entities.Question, 0, c.TotalQuestions())
	all = append(all, c.iadl...)
	return append(all, c.adl...)
}

// TotalQuestions is the number of questions across both scales
func (c *QuestionCatalog) TotalQuestions() int {
	return len(c.iadl) + len(c.adl)
}

// PhaseBounds returns the global index range [start, end) owned by a phase
func (c *QuestionCatalog) PhaseBounds(phase entities.Phase) (start, end int, ok bool) {
	switch phase {
	case entities.PhaseIADL:
		return 0, len(c.iadl), true
	case entities.PhaseADL:
		return len(c.iadl), c.TotalQuestions(), true
	}
	return 0, 0, false
}

// QuestionAt returns the question open at a global index. It is the only
// place that maps (phase, index) onto a question.
func (c *QuestionCatalog) QuestionAt(phase entities.Phase, index int) (*entities.Question, error) {
	start, end, ok := c.PhaseBounds(phase)
	if !ok {
		return nil, apperrors.NewTransitionError(fmt.Sprintf("no questions in phase %s", phase))
	}
	if index < start || index >= end {
		return nil, apperrors.NewTransitionError(fmt.Sprintf("index %d outside phase %s range [%d,%d)", index, phase, start, end))
	}
	if phase == entities.PhaseIADL {
		return c.iadl[index], nil
	}
	return c.adl[index-start], nil
}

// Lookup returns a question by code
func (c *QuestionCatalog) Lookup(code string) (*entities.Question, bool) {
	q, ok := c.byCode[code]
	return q, ok
}

// MaxScore is the highest achievable total on a scale
func (c *QuestionCatalog) MaxScore(assessmentType entities.AssessmentType) int {
	questions := c.iadl
	if assessmentType == entities.AssessmentTypeADL {
		questions = c.adl
	}
	total := 0
	for _, q := range questions {
		total += q.MaxScore()
	}
	return total
}
