package repositories

import (
	"context"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// SessionFilter narrows session listings
type SessionFilter struct {
	PatientID  string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// SessionRepository stores the mutable progress record of a session.
// GetByID returns an apperrors NOT_FOUND error for unknown ids.
// CommitTurn writes a turn's events and the new progress record as one unit:
// either all of them are stored or none are.
type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, session *entities.Session) error

	// GetByID loads a session with its responses and transcript
	GetByID(ctx context.Context, id string) (*entities.Session, error)

	// CommitTurn appends the turn's messages and responses, stores the scores
	// of a completion event and replaces the progress record with session
	CommitTurn(ctx context.Context, session *entities.Session, events []*entities.AssessmentEvent) error

	// Delete removes a session and everything recorded for it
	Delete(ctx context.Context, id string) error

	// List returns sessions ordered by last activity, most recent first
	List(ctx context.Context, filter SessionFilter) ([]*entities.Session, error)
}

// MessageRepository reads the append-only transcript log
type MessageRepository interface {
	ListMessages(ctx context.Context, sessionID string) ([]entities.ConversationMessage, error)
}

// ScoreRepository reads the scale totals stored when a session completed.
// GetScores returns an apperrors NOT_FOUND error before completion.
type ScoreRepository interface {
	GetScores(ctx context.Context, sessionID string) (*entities.AssessmentScores, error)
}
