package entities

import "time"

// ReportItem is one answered question as shown in a clinician report
type ReportItem struct {
	QuestionCode   string         `json:"question_code"`
	AssessmentType AssessmentType `json:"assessment_type"`
	Sequence       int            `json:"sequence"`
	Question       string         `json:"question"`
	Answer         string         `json:"answer"`
	OptionText     string         `json:"option_text"`
	Score          int            `json:"score"`
	MaxScore       int            `json:"max_score"`
	Confidence     float64        `json:"confidence"`
	Clarified      bool           `json:"clarified"`
}

// AssessmentReport is the printable record of a session
type AssessmentReport struct {
	SessionID   string            `json:"session_id"`
	PatientID   string            `json:"patient_id,omitempty"`
	Phase       Phase             `json:"phase"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	GeneratedAt time.Time         `json:"generated_at"`
	Scores      *AssessmentScores `json:"scores"`
	Items       []ReportItem      `json:"items"`
}
