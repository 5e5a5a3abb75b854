package providers

import (
	"context"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// MessageKind selects which assistant message to render
type MessageKind string

const (
	MessageKindWelcome         MessageKind = "welcome"
	MessageKindConsentReminder MessageKind = "consent_reminder"
	MessageKindQuestion        MessageKind = "question"
	MessageKindClarification   MessageKind = "clarification"
	MessageKindTransition      MessageKind = "transition"
	MessageKindCompletion      MessageKind = "completion"
	MessageKindError           MessageKind = "error"
)

// MessageContext carries what a renderer may mention in a message
type MessageContext struct {
	Phase                 entities.Phase
	NextPhase             entities.Phase
	Question              *entities.Question
	QuestionNumber        int
	TotalQuestions        int
	ClarificationQuestion string
	Scores                *entities.AssessmentScores
}

// MessageRenderer produces assistant-facing text
type MessageRenderer interface {
	RenderMessage(ctx context.Context, kind MessageKind, mc MessageContext) (string, error)
}
