package repositories

import (
	"context"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// QuestionRepository is the read-only source of catalog questions
type QuestionRepository interface {
	// ListByType returns the questions of one scale ordered by sequence
	ListByType(ctx context.Context, assessmentType entities.AssessmentType) ([]*entities.Question, error)

	// GetByCode retrieves a question by its stable code
	GetByCode(ctx context.Context, code string) (*entities.Question, error)
}

// QuestionWriter stores catalog questions. Used by the seeder only.
type QuestionWriter interface {
	// Upsert inserts or replaces a question and its answer options
	Upsert(ctx context.Context, question *entities.Question) error
}
