package entities

import "time"

// Speaker identifies who produced a transcript message
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// MessageType classifies a transcript message
type MessageType string

const (
	MessageTypeWelcome            MessageType = "welcome"
	MessageTypeConsentReply       MessageType = "consent_reply"
	MessageTypeConsentReminder    MessageType = "consent_reminder"
	MessageTypeQuestion           MessageType = "question"
	MessageTypeAnswer             MessageType = "answer"
	MessageTypeClarification      MessageType = "clarification"
	MessageTypeClarificationReply MessageType = "clarification_reply"
	MessageTypeTransition         MessageType = "transition"
	MessageTypeCompletion         MessageType = "completion"
	MessageTypeError              MessageType = "error"
)

// ConversationMessage is one turn in the visible transcript
type ConversationMessage struct {
	ID           string      `json:"id" db:"id"`
	Timestamp    time.Time   `json:"timestamp" db:"created_at"`
	Speaker      Speaker     `json:"speaker" db:"speaker"`
	Content      string      `json:"content" db:"content"`
	MessageType  MessageType `json:"message_type" db:"message_type"`
	QuestionCode string      `json:"question_code,omitempty" db:"question_code"`
	Phase        Phase       `json:"phase" db:"phase"`
}
