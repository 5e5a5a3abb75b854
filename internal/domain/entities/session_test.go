package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_NextOnlyMovesForward(t *testing.T) {
	order := []Phase{PhaseWelcome, PhaseIADL, PhaseADL, PhaseComplete}

	for i := 0; i < len(order)-1; i++ {
		next, ok := order[i].Next()
		require.True(t, ok)
		assert.Equal(t, order[i+1], next)
	}

	_, ok := PhaseComplete.Next()
	assert.False(t, ok)
}

func TestNewSession(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewSession("s-1", "p-1", now)

	assert.Equal(t, PhaseWelcome, s.Phase)
	assert.Equal(t, StateInitializing, s.State)
	assert.Zero(t, s.CurrentQuestionIndex)
	assert.Empty(t, s.Responses)
	assert.Equal(t, now, s.StartedAt)
	assert.Equal(t, now, s.LastActivity)
}

func TestSession_CloneIsDeep(t *testing.T) {
	now := time.Now()
	s := NewSession("s-1", "", now)
	s.Responses = append(s.Responses, AssessmentResponse{QuestionCode: "LAWTON_TELEPHONE"})
	s.ConversationHistory = append(s.ConversationHistory, ConversationMessage{Content: "hello"})
	s.Metadata["site"] = "clinic-a"

	c := s.Clone()
	c.Responses = append(c.Responses, AssessmentResponse{QuestionCode: "LAWTON_SHOPPING"})
	c.ConversationHistory[0].Content = "changed"
	c.Metadata["site"] = "clinic-b"
	c.ErrorCount++

	assert.Len(t, s.Responses, 1)
	assert.Equal(t, "hello", s.ConversationHistory[0].Content)
	assert.Equal(t, "clinic-a", s.Metadata["site"])
	assert.Zero(t, s.ErrorCount)
}

func TestSession_ResponseFor(t *testing.T) {
	s := NewSession("s-1", "", time.Now())
	s.Responses = append(s.Responses, AssessmentResponse{QuestionCode: "LAWTON_TELEPHONE", InterpretedScore: 1})

	r, ok := s.ResponseFor("LAWTON_TELEPHONE")
	assert.True(t, ok)
	assert.Equal(t, 1, r.InterpretedScore)

	_, ok = s.ResponseFor("LAWTON_SHOPPING")
	assert.False(t, ok)
}

func TestFallbackInterpretation(t *testing.T) {
	f := FallbackInterpretation("timeout")

	assert.Zero(t, f.InterpretedScore)
	assert.Equal(t, FallbackConfidence, f.Confidence)
	assert.True(t, f.NeedsClarification)
	assert.Contains(t, f.Reasoning, "timeout")
}

func TestInterpretationResult(t *testing.T) {
	ok := InterpretationOk(ScoreInterpretation{InterpretedScore: 1, Confidence: 0.9})
	assert.True(t, ok.Ok())
	assert.Equal(t, 1, ok.Interpretation.InterpretedScore)

	failed := InterpretationFailed("malformed json")
	assert.False(t, failed.Ok())
	assert.Equal(t, "malformed json", failed.FailureReason)
}
