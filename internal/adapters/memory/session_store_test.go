package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/memory"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

func TestSessionStore_CreateAndLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, entities.NewSession("s1", "p1", now)))

	err := store.Create(ctx, entities.NewSession("s1", "p1", now))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	loaded, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseWelcome, loaded.Phase)
	assert.Empty(t, loaded.Responses)

	_, err = store.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func messageEvent(sessionID, content string) *entities.AssessmentEvent {
	event := entities.NewAssessmentEvent(sessionID, entities.EventTypeMessageAppended, "", time.Now())
	event.Message = &entities.ConversationMessage{Content: content}
	return event
}

func responseEvent(sessionID, code string, score int) *entities.AssessmentEvent {
	event := entities.NewAssessmentEvent(sessionID, entities.EventTypeResponseRecorded, code, time.Now())
	event.Response = &entities.AssessmentResponse{QuestionCode: code, InterpretedScore: score}
	return event
}

func TestSessionStore_CommitTurnKeepsLogsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := entities.NewSession("s1", "", time.Now())
	require.NoError(t, store.Create(ctx, session))

	session.Phase = entities.PhaseIADL
	require.NoError(t, store.CommitTurn(ctx, session, []*entities.AssessmentEvent{
		messageEvent("s1", "hello"),
		responseEvent("s1", "LAWTON_PHONE", 1),
		responseEvent("s1", "LAWTON_PHONE", 0),
	}))

	// A stale snapshot without the response must not erase the log.
	session.CurrentQuestionIndex = 1
	require.NoError(t, store.CommitTurn(ctx, session, nil))

	loaded, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseIADL, loaded.Phase)
	assert.Equal(t, 1, loaded.CurrentQuestionIndex)
	require.Len(t, loaded.Responses, 1)
	assert.Equal(t, 1, loaded.Responses[0].InterpretedScore)
	require.Len(t, loaded.ConversationHistory, 1)
}

func TestSessionStore_CommitTurnIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := entities.NewSession("s1", "", time.Now())
	require.NoError(t, store.Create(ctx, session))

	next := session.Clone()
	next.Phase = entities.PhaseIADL
	next.CurrentQuestionIndex = 1
	broken := entities.NewAssessmentEvent("s1", entities.EventTypeSessionCompleted, "", time.Now())

	err := store.CommitTurn(ctx, next, []*entities.AssessmentEvent{
		messageEvent("s1", "answer"),
		responseEvent("s1", "LAWTON_PHONE", 1),
		broken,
	})
	require.Error(t, err)

	loaded, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseWelcome, loaded.Phase)
	assert.Zero(t, loaded.CurrentQuestionIndex)
	assert.Empty(t, loaded.Responses)
	assert.Empty(t, loaded.ConversationHistory)

	err = store.CommitTurn(ctx, entities.NewSession("missing", "", time.Now()), nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestSessionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	require.NoError(t, store.Create(ctx, entities.NewSession("s1", "", time.Now())))

	loaded, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	loaded.Phase = entities.PhaseComplete
	loaded.Metadata["k"] = "v"

	again, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseWelcome, again.Phase)
	assert.Empty(t, again.Metadata)
}

func TestSessionStore_List(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		s := entities.NewSession(id, "p1", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Create(ctx, s))
	}
	done := entities.NewSession("d", "p2", base.Add(time.Hour))
	done.Phase = entities.PhaseComplete
	require.NoError(t, store.Create(ctx, done))

	all, err := store.List(ctx, repositories.SessionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "d", all[0].ID)

	active, err := store.List(ctx, repositories.SessionFilter{ActiveOnly: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, []string{"c", "b"}, []string{active[0].ID, active[1].ID})

	patient, err := store.List(ctx, repositories.SessionFilter{PatientID: "p2"})
	require.NoError(t, err)
	require.Len(t, patient, 1)

	beyond, err := store.List(ctx, repositories.SessionFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestSessionStore_ScoresAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	require.NoError(t, store.Create(ctx, entities.NewSession("s1", "", time.Now())))

	_, err := store.GetScores(ctx, "s1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	session, err := store.GetByID(ctx, "s1")
	require.NoError(t, err)
	completed := entities.NewAssessmentEvent("s1", entities.EventTypeSessionCompleted, "", time.Now())
	completed.Scores = &entities.AssessmentScores{IADL: entities.ScaleScore{Total: 8}}
	require.NoError(t, store.CommitTurn(ctx, session, []*entities.AssessmentEvent{completed}))
	got, err := store.GetScores(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 8, got.IADL.Total)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.ListMessages(ctx, "s1")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	assert.Error(t, store.Delete(ctx, "s1"))
}
