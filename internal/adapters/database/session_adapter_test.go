package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/database"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

var sessionCols = []string{
	"id", "patient_id", "phase", "state", "current_question_index",
	"error_count", "last_error", "metadata", "started_at", "last_activity", "completed_at",
}

func TestSessionAdapter_Create(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	session := entities.NewSession("s1", "p1", time.Now())

	mock.ExpectExec(`INSERT INTO "assessment_sessions" .* ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, adapter.Create(context.Background(), session))

	mock.ExpectExec(`INSERT INTO "assessment_sessions"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := adapter.Create(context.Background(), session)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestSessionAdapter_GetByID(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM "assessment_sessions" WHERE \("id" = \$1\)`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(
			"s1", "p1", "iadl", "waiting_for_input", 1, 0, "", []byte(`{"channel":"web"}`), started, started, nil,
		))
	mock.ExpectQuery(`SELECT .* FROM "assessment_responses"`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "question_code", "assessment_type", "user_response_text", "interpreted_score",
			"confidence", "reasoning", "needs_clarification", "clarified", "created_at",
		}).AddRow("r1", "LAWTON_PHONE", "IADL", "I call people", 1, 0.9, "independent", false, false, started))
	mock.ExpectQuery(`SELECT .* FROM "conversation_messages"`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "speaker", "content", "message_type", "question_code", "phase", "created_at",
		}).
			AddRow("m1", "assistant", "Hello", "welcome", "", "welcome", started).
			AddRow("m2", "user", "yes", "consent_reply", "", "welcome", started))

	session, err := adapter.GetByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseIADL, session.Phase)
	assert.Equal(t, entities.StateWaitingForInput, session.State)
	assert.Equal(t, 1, session.CurrentQuestionIndex)
	assert.Equal(t, "web", session.Metadata["channel"])
	assert.Nil(t, session.CompletedAt)
	require.Len(t, session.Responses, 1)
	assert.Equal(t, entities.AssessmentTypeIADL, session.Responses[0].AssessmentType)
	require.Len(t, session.ConversationHistory, 2)
	assert.Equal(t, entities.SpeakerUser, session.ConversationHistory[1].Speaker)
}

func TestSessionAdapter_GetByIDNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)

	mock.ExpectQuery(`SELECT .* FROM "assessment_sessions"`).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := adapter.GetByID(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func turnEvents(sessionID string, now time.Time) []*entities.AssessmentEvent {
	asked := entities.NewAssessmentEvent(sessionID, entities.EventTypeMessageAppended, "LAWTON_PHONE", now)
	asked.Message = &entities.ConversationMessage{
		Speaker: entities.SpeakerUser, Content: "I ring my son every day", MessageType: entities.MessageTypeAnswer,
		QuestionCode: "LAWTON_PHONE", Phase: entities.PhaseIADL, Timestamp: now,
	}
	answered := entities.NewAssessmentEvent(sessionID, entities.EventTypeResponseRecorded, "LAWTON_PHONE", now)
	answered.Response = &entities.AssessmentResponse{
		QuestionCode: "LAWTON_PHONE", AssessmentType: entities.AssessmentTypeIADL,
		UserResponseText: "I ring my son every day", InterpretedScore: 1, Confidence: 0.9, Timestamp: now,
	}
	progress := entities.NewAssessmentEvent(sessionID, entities.EventTypeProgressChanged, "LAWTON_PHONE", now)
	return []*entities.AssessmentEvent{asked, answered, progress}
}

func TestSessionAdapter_CommitTurn(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	now := time.Now()
	session := entities.NewSession("s1", "", now)
	session.Phase = entities.PhaseIADL
	session.CurrentQuestionIndex = 1

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "conversation_messages"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "assessment_responses" .* ON CONFLICT DO NOTHING`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "assessment_sessions" SET .* WHERE \("id" = \$\d+\)`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.CommitTurn(context.Background(), session, turnEvents("s1", now)))
}

func TestSessionAdapter_CommitTurnStoresCompletionScores(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	now := time.Now()
	session := entities.NewSession("s1", "", now)
	session.Phase = entities.PhaseComplete
	completed := entities.NewAssessmentEvent("s1", entities.EventTypeSessionCompleted, "", now)
	completed.Scores = &entities.AssessmentScores{ADL: entities.ScaleScore{Total: 85}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "assessment_scores" .* ON CONFLICT \(session_id\) DO UPDATE SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "assessment_sessions"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, adapter.CommitTurn(context.Background(), session, []*entities.AssessmentEvent{completed}))
}

func TestSessionAdapter_CommitTurnRollsBackWhenProgressFails(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	now := time.Now()
	session := entities.NewSession("s1", "", now)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "conversation_messages"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "assessment_responses"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "assessment_sessions"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := adapter.CommitTurn(context.Background(), session, turnEvents("s1", now))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestSessionAdapter_CommitTurnRollsBackWhenAppendFails(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "conversation_messages"`).WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	err := adapter.CommitTurn(context.Background(), entities.NewSession("s1", "", now), turnEvents("s1", now))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestSessionAdapter_CommitTurnNotFound(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "assessment_sessions"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := adapter.CommitTurn(context.Background(), entities.NewSession("gone", "", time.Now()), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestSessionAdapter_Delete(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)

	mock.ExpectExec(`DELETE FROM "assessment_sessions"`).WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, adapter.Delete(context.Background(), "s1"))

	mock.ExpectExec(`DELETE FROM "assessment_sessions"`).WithArgs("s1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, apperrors.IsType(adapter.Delete(context.Background(), "s1"), apperrors.ErrorTypeNotFound))
}

func TestSessionAdapter_List(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewSessionAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "assessment_sessions" WHERE .*"patient_id" = \$1.*"phase" != \$2.* ORDER BY "last_activity" DESC, "id" ASC LIMIT \$3`).
		WithArgs("p1", "complete", 5).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("s2", "p1", "adl", "waiting_for_input", 3, 0, "", []byte("{}"), now, now, nil))
	mock.ExpectQuery(`SELECT .* FROM "assessment_responses"`).WithArgs("s2").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sessions, err := adapter.List(context.Background(), repositories.SessionFilter{PatientID: "p1", ActiveOnly: true, Limit: 5})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)
	assert.Empty(t, sessions[0].Responses)
}
