package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jmoiron/sqlx"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

const (
	sessionsTable  = "assessment_sessions"
	messagesTable  = "conversation_messages"
	responsesTable = "assessment_responses"
	scoresTable    = "assessment_scores"
)

var sessionColumns = []interface{}{
	"id", "patient_id", "phase", "state", "current_question_index",
	"error_count", "last_error", "metadata", "started_at", "last_activity", "completed_at",
}

type sessionRow struct {
	ID                   string         `db:"id"`
	PatientID            sql.NullString `db:"patient_id"`
	Phase                string         `db:"phase"`
	State                string         `db:"state"`
	CurrentQuestionIndex int            `db:"current_question_index"`
	ErrorCount           int            `db:"error_count"`
	LastError            string         `db:"last_error"`
	Metadata             []byte         `db:"metadata"`
	StartedAt            time.Time      `db:"started_at"`
	LastActivity         time.Time      `db:"last_activity"`
	CompletedAt          sql.NullTime   `db:"completed_at"`
}

func (r *sessionRow) toEntity() (*entities.Session, error) {
	session := &entities.Session{
		ID:                   r.ID,
		PatientID:            r.PatientID.String,
		Phase:                entities.Phase(r.Phase),
		State:                entities.SessionState(r.State),
		CurrentQuestionIndex: r.CurrentQuestionIndex,
		ErrorCount:           r.ErrorCount,
		LastError:            r.LastError,
		StartedAt:            r.StartedAt,
		LastActivity:         r.LastActivity,
		Responses:            []entities.AssessmentResponse{},
		ConversationHistory:  []entities.ConversationMessage{},
		Metadata:             map[string]string{},
	}
	if r.CompletedAt.Valid {
		completed := r.CompletedAt.Time
		session.CompletedAt = &completed
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &session.Metadata); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// SessionAdapter stores the mutable progress record of a session. The
// transcript and accepted answers are read from their append-only tables,
// and a turn writes to every table in one transaction.
type SessionAdapter struct {
	client    *postgres.Client
	db        *goqu.Database
	messages  *MessageAdapter
	responses *ResponseAdapter
	scores    *ScoreAdapter
}

// NewSessionAdapter creates a new session adapter
func NewSessionAdapter(client *postgres.Client) *SessionAdapter {
	return &SessionAdapter{
		client:    client,
		db:        goqu.New("postgres", client.DB()),
		messages:  NewMessageAdapter(client),
		responses: NewResponseAdapter(client),
		scores:    NewScoreAdapter(client),
	}
}

var _ repositories.SessionRepository = (*SessionAdapter)(nil)

func sessionRecord(session *entities.Session) (goqu.Record, error) {
	metadata := session.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	var completedAt sql.NullTime
	if session.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *session.CompletedAt, Valid: true}
	}
	return goqu.Record{
		"id":                     session.ID,
		"patient_id":             sql.NullString{String: session.PatientID, Valid: session.PatientID != ""},
		"phase":                  string(session.Phase),
		"state":                  string(session.State),
		"current_question_index": session.CurrentQuestionIndex,
		"error_count":            session.ErrorCount,
		"last_error":             session.LastError,
		"metadata":               string(encoded),
		"started_at":             session.StartedAt,
		"last_activity":          session.LastActivity,
		"completed_at":           completedAt,
	}, nil
}

// Create stores a new session
func (a *SessionAdapter) Create(ctx context.Context, session *entities.Session) error {
	record, err := sessionRecord(session)
	if err != nil {
		return apperrors.NewInternalError("failed to encode session metadata", err)
	}

	query, args, err := a.db.Insert(sessionsTable).Rows(record).
		OnConflict(goqu.DoNothing()).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session insert query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create session", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return apperrors.NewConflictError("session " + session.ID + " already exists")
	}
	return nil
}

// GetByID loads a session with its responses and transcript
func (a *SessionAdapter) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	query, args, err := a.db.From(sessionsTable).Select(sessionColumns...).
		Where(goqu.Ex{"id": id}).Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build session query", err)
	}

	var row sessionRow
	if err := a.client.DBX().GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewSessionNotFoundError(id)
		}
		return nil, apperrors.NewInternalError("failed to get session", err)
	}

	session, err := row.toEntity()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to decode session metadata", err)
	}

	if session.Responses, err = a.responses.ListResponses(ctx, id); err != nil {
		return nil, err
	}
	if session.ConversationHistory, err = a.messages.ListMessages(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// CommitTurn appends the turn's messages and responses, stores completion
// scores and updates the progress record inside one transaction. A failure
// at any step rolls back every row of the turn.
func (a *SessionAdapter) CommitTurn(ctx context.Context, session *entities.Session, events []*entities.AssessmentEvent) error {
	record, err := sessionRecord(session)
	if err != nil {
		return apperrors.NewInternalError("failed to encode session metadata", err)
	}
	delete(record, "id")
	delete(record, "started_at")

	update, updateArgs, err := a.db.Update(sessionsTable).Set(record).
		Where(goqu.Ex{"id": session.ID}).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session update query", err)
	}

	err = a.client.InTx(ctx, func(tx *sqlx.Tx) error {
		for _, event := range events {
			var err error
			switch event.EventType {
			case entities.EventTypeMessageAppended:
				err = a.messages.appendMessage(ctx, tx, session.ID, event.Message)
			case entities.EventTypeResponseRecorded:
				err = a.responses.recordResponse(ctx, tx, session.ID, event.Response)
			case entities.EventTypeSessionCompleted:
				err = a.scores.saveScores(ctx, tx, session.ID, event.Scores, event.Timestamp)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", event.EventType, err)
			}
		}

		result, err := tx.ExecContext(ctx, update, updateArgs...)
		if err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return apperrors.NewSessionNotFoundError(session.ID)
		}
		return nil
	})
	if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		return err
	}
	if err != nil {
		return apperrors.NewInternalError(fmt.Sprintf("failed to commit turn for session %s", session.ID), err)
	}
	return nil
}

// Delete removes a session. Messages, responses and scores cascade.
func (a *SessionAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := a.db.Delete(sessionsTable).Where(goqu.Ex{"id": id}).Prepared(true).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session delete query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to delete session", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewSessionNotFoundError(id)
	}
	return nil
}

// List returns sessions ordered by last activity, most recent first. Listed
// sessions carry their responses but not their transcript.
func (a *SessionAdapter) List(ctx context.Context, filter repositories.SessionFilter) ([]*entities.Session, error) {
	ds := a.db.From(sessionsTable).Select(sessionColumns...)

	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"patient_id": filter.PatientID})
	}
	if filter.ActiveOnly {
		ds = ds.Where(goqu.C("phase").Neq(string(entities.PhaseComplete)))
	}

	ds = ds.Order(goqu.I("last_activity").Desc(), goqu.I("id").Asc())
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	var rows []sessionRow
	if err := a.client.DBX().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to list sessions", err)
	}

	sessions := make([]*entities.Session, 0, len(rows))
	for i := range rows {
		session, err := rows[i].toEntity()
		if err != nil {
			return nil, apperrors.NewInternalError("failed to decode session metadata", err)
		}
		if session.Responses, err = a.responses.ListResponses(ctx, session.ID); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
