package entities

import "time"

// FallbackConfidence is the confidence attached to a fallback interpretation
const FallbackConfidence = 0.1

// ScoreInterpretation is the structured reading of one free-text answer
type ScoreInterpretation struct {
	InterpretedScore      int     `json:"interpreted_score"`
	Confidence            float64 `json:"confidence"`
	Reasoning             string  `json:"reasoning"`
	NeedsClarification    bool    `json:"needs_clarification"`
	ClarificationQuestion string  `json:"clarification_question,omitempty"`
}

// FallbackInterpretation is the conservative reading used whenever the
// interpreter cannot produce a usable result.
func FallbackInterpretation(reason string) ScoreInterpretation {
	return ScoreInterpretation{
		InterpretedScore:   0,
		Confidence:         FallbackConfidence,
		Reasoning:          "Interpretation failed: " + reason,
		NeedsClarification: true,
	}
}

// InterpretationResult is what an interpreter capability returns: either an
// interpretation or the reason it could not produce one.
type InterpretationResult struct {
	Interpretation ScoreInterpretation
	FailureReason  string
	// Transient is set when the capability was unreachable rather than wrong.
	Transient bool
	ok        bool
}

// InterpretationOk wraps a successful interpretation
func InterpretationOk(interp ScoreInterpretation) InterpretationResult {
	return InterpretationResult{Interpretation: interp, ok: true}
}

// InterpretationFailed records why interpretation failed
func InterpretationFailed(reason string) InterpretationResult {
	return InterpretationResult{FailureReason: reason}
}

// InterpretationUnavailable records a transport failure that may succeed on retry
func InterpretationUnavailable(reason string) InterpretationResult {
	return InterpretationResult{FailureReason: reason, Transient: true}
}

// Ok reports whether the result carries an interpretation
func (r InterpretationResult) Ok() bool {
	return r.ok
}

// AssessmentResponse is one accepted answer to one question
type AssessmentResponse struct {
	ID                 string         `json:"id" db:"id"`
	QuestionCode       string         `json:"question_code" db:"question_code"`
	AssessmentType     AssessmentType `json:"assessment_type" db:"assessment_type"`
	UserResponseText   string         `json:"user_response_text" db:"user_response_text"`
	InterpretedScore   int            `json:"interpreted_score" db:"interpreted_score"`
	Confidence         float64        `json:"confidence" db:"confidence"`
	Reasoning          string         `json:"reasoning" db:"reasoning"`
	NeedsClarification bool           `json:"needs_clarification" db:"needs_clarification"`
	Clarified          bool           `json:"clarified" db:"clarified"`
	Timestamp          time.Time      `json:"timestamp" db:"created_at"`
}
