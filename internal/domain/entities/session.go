package entities

import (
	"time"
)

// Phase gates which question set is active
type Phase string

const (
	PhaseWelcome  Phase = "welcome"
	PhaseIADL     Phase = "iadl"
	PhaseADL      Phase = "adl"
	PhaseComplete Phase = "complete"
)

// Next returns the phase that follows p. Complete has no successor.
func (p Phase) Next() (Phase, bool) {
	switch p {
	case PhaseWelcome:
		return PhaseIADL, true
	case PhaseIADL:
		return PhaseADL, true
	case PhaseADL:
		return PhaseComplete, true
	}
	return p, false
}

// IsQuestionPhase reports whether questions are asked in this phase
func (p Phase) IsQuestionPhase() bool {
	return p == PhaseIADL || p == PhaseADL
}

// IsValid checks if the phase is one of the defined constants.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseWelcome, PhaseIADL, PhaseADL, PhaseComplete:
		return true
	}
	return false
}

// SessionState gates what kind of input the session expects
type SessionState string

const (
	StateInitializing          SessionState = "initializing"
	StateWaitingForInput       SessionState = "waiting_for_input"
	StateProcessing            SessionState = "processing"
	StateAwaitingClarification SessionState = "awaiting_clarification"
	StateCompleted             SessionState = "completed"
	StateError                 SessionState = "error"
)

// Session is the aggregate root for one patient's interview
type Session struct {
	ID                   string                `json:"session_id" db:"id"`
	PatientID            string                `json:"patient_id,omitempty" db:"patient_id"`
	Phase                Phase                 `json:"phase" db:"phase"`
	State                SessionState          `json:"state" db:"state"`
	CurrentQuestionIndex int                   `json:"current_question_index" db:"current_question_index"`
	Responses            []AssessmentResponse  `json:"responses"`
	ConversationHistory  []ConversationMessage `json:"conversation_history"`
	StartedAt            time.Time             `json:"started_at" db:"started_at"`
	LastActivity         time.Time             `json:"last_activity" db:"last_activity"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty" db:"completed_at"`
	ErrorCount           int                   `json:"error_count" db:"error_count"`
	LastError            string                `json:"last_error,omitempty" db:"last_error"`
	Metadata             map[string]string     `json:"metadata,omitempty"`
}

// NewSession creates a session in welcome/initializing
func NewSession(id, patientID string, now time.Time) *Session {
	return &Session{
		ID:                  id,
		PatientID:           patientID,
		Phase:               PhaseWelcome,
		State:               StateInitializing,
		Responses:           []AssessmentResponse{},
		ConversationHistory: []ConversationMessage{},
		StartedAt:           now,
		LastActivity:        now,
		Metadata:            map[string]string{},
	}
}

// Touch records activity on the session
func (s *Session) Touch(now time.Time) {
	s.LastActivity = now
}

// IsComplete reports whether the completion transition has happened
func (s *Session) IsComplete() bool {
	return s.Phase == PhaseComplete || s.State == StateCompleted
}

// ResponseFor returns the accepted response for a question code
func (s *Session) ResponseFor(code string) (AssessmentResponse, bool) {
	for _, r := range s.Responses {
		if r.QuestionCode == code {
			return r, true
		}
	}
	return AssessmentResponse{}, false
}

// Clone returns a deep copy. The copy shares no slices or maps with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Responses = append(make([]AssessmentResponse, 0, len(s.Responses)), s.Responses...)
	c.ConversationHistory = append(make([]ConversationMessage, 0, len(s.ConversationHistory)), s.ConversationHistory...)
	if s.CompletedAt != nil {
		completed := *s.CompletedAt
		c.CompletedAt = &completed
	}
	c.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		c.Metadata[k] = v
	}
	return &c
}
