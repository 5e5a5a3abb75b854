package database_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/database"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

func TestMessageAdapter_ListMessages(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewMessageAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM "conversation_messages" WHERE \("session_id" = \$1\) ORDER BY "seq" ASC`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "speaker", "content", "message_type", "question_code", "phase", "created_at",
		}).AddRow("m1", "assistant", "Hello", "welcome", "", "welcome", now))

	messages, err := adapter.ListMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, entities.SpeakerAssistant, messages[0].Speaker)

	mock.ExpectQuery(`SELECT .* FROM "conversation_messages"`).WithArgs("s2").
		WillReturnError(errors.New("connection reset"))
	_, err = adapter.ListMessages(context.Background(), "s2")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestScoreAdapter_GetScores(t *testing.T) {
	client, mock := setupMockDB(t)
	adapter := database.NewScoreAdapter(client)
	scores := &entities.AssessmentScores{
		IADL:              entities.ScaleScore{AssessmentType: entities.AssessmentTypeIADL, Total: 6, MaxScore: 8, Interpretation: entities.BandMildImpairment},
		ADL:               entities.ScaleScore{AssessmentType: entities.AssessmentTypeADL, Total: 85, MaxScore: 100, Interpretation: entities.BandMildImpairment},
		OverallConfidence: 0.82,
	}

	payload, err := json.Marshal(scores)
	require.NoError(t, err)
	mock.ExpectQuery(`SELECT "scores" FROM "assessment_scores"`).WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"scores"}).AddRow(payload))

	got, err := adapter.GetScores(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 85, got.ADL.Total)
	assert.Equal(t, entities.BandMildImpairment, got.IADL.Interpretation)

	mock.ExpectQuery(`SELECT "scores" FROM "assessment_scores"`).WithArgs("s2").
		WillReturnRows(sqlmock.NewRows([]string{"scores"}))
	_, err = adapter.GetScores(context.Background(), "s2")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
