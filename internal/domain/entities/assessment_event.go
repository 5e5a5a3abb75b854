package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// AssessmentEventType represents the type of session event
type AssessmentEventType string

const (
	EventTypeMessageAppended  AssessmentEventType = "message_appended"
	EventTypeResponseRecorded AssessmentEventType = "response_recorded"
	EventTypeProgressChanged  AssessmentEventType = "progress_changed"
	EventTypeSessionCompleted AssessmentEventType = "session_completed"
	EventTypeSessionDeleted   AssessmentEventType = "session_deleted"
)

// ProgressSnapshot is the mutable progress record carried by progress events
type ProgressSnapshot struct {
	Phase                Phase        `json:"phase"`
	State                SessionState `json:"state"`
	CurrentQuestionIndex int          `json:"current_question_index"`
	ResponsesCompleted   int          `json:"responses_completed"`
	TotalQuestions       int          `json:"total_questions"`
	ErrorCount           int          `json:"error_count"`
}

// AssessmentEvent is emitted by a turn for the session store and subscribers.
// QuestionCode is always the question that was open before the turn began.
type AssessmentEvent struct {
	ID           string               `json:"id"`
	SessionID    string               `json:"session_id"`
	EventType    AssessmentEventType  `json:"event_type"`
	Timestamp    time.Time            `json:"timestamp"`
	QuestionCode string               `json:"question_code,omitempty"`
	Message      *ConversationMessage `json:"message,omitempty"`
	Response     *AssessmentResponse  `json:"response,omitempty"`
	Progress     *ProgressSnapshot    `json:"progress,omitempty"`
	Scores       *AssessmentScores    `json:"scores,omitempty"`
}

// NewAssessmentEvent creates a new assessment event
func NewAssessmentEvent(sessionID string, eventType AssessmentEventType, questionCode string, at time.Time) *AssessmentEvent {
	return &AssessmentEvent{
		ID:           generateEventID(at),
		SessionID:    sessionID,
		EventType:    eventType,
		Timestamp:    at,
		QuestionCode: questionCode,
	}
}

func generateEventID(at time.Time) string {
	return at.UTC().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
