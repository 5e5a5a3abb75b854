package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

// ResponseAdapter is the append-only table of accepted answers
type ResponseAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewResponseAdapter creates a new response adapter
func NewResponseAdapter(client *postgres.Client) *ResponseAdapter {
	return &ResponseAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// recordResponse inserts an accepted answer through exec. The (session,
// question) unique key turns a repeated answer into a no-op.
func (a *ResponseAdapter) recordResponse(ctx context.Context, exec sqlx.ExecerContext, sessionID string, response *entities.AssessmentResponse) error {
	if response == nil {
		return errors.New("response event without a response")
	}
	id := response.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := a.db.Insert(responsesTable).Rows(goqu.Record{
		"id":                  id,
		"session_id":          sessionID,
		"question_code":       response.QuestionCode,
		"assessment_type":     string(response.AssessmentType),
		"user_response_text":  response.UserResponseText,
		"interpreted_score":   response.InterpretedScore,
		"confidence":          response.Confidence,
		"reasoning":           response.Reasoning,
		"needs_clarification": response.NeedsClarification,
		"clarified":           response.Clarified,
		"created_at":          response.Timestamp,
	}).OnConflict(goqu.DoNothing()).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build response insert query: %w", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record response: %w", err)
	}
	return nil
}

// ListResponses returns accepted answers in append order
func (a *ResponseAdapter) ListResponses(ctx context.Context, sessionID string) ([]entities.AssessmentResponse, error) {
	query, args, err := a.db.From(responsesTable).
		Select("id", "question_code", "assessment_type", "user_response_text", "interpreted_score",
			"confidence", "reasoning", "needs_clarification", "clarified", "created_at").
		Where(goqu.Ex{"session_id": sessionID}).
		Order(goqu.I("seq").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build response query", err)
	}

	responses := []entities.AssessmentResponse{}
	if err := a.client.DBX().SelectContext(ctx, &responses, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list responses", err)
	}
	return responses, nil
}
