package evaluation

import (
	"time"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
)

// LabeledAnswer is one free-text answer with the score a clinician gave it.
type LabeledAnswer struct {
	ID            string `json:"id" yaml:"id"`
	QuestionCode  string `json:"question_code" yaml:"question_code"`
	Answer        string `json:"answer" yaml:"answer"`
	ExpectedScore int    `json:"expected_score" yaml:"expected_score"`
	Difficulty    string `json:"difficulty,omitempty" yaml:"difficulty,omitempty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single labeled answer.
type EvalResult struct {
	CaseID             string
	QuestionCode       string
	AssessmentType     entities.AssessmentType
	Expected           int
	Predicted          int
	Confidence         float64
	Fallback           bool
	NeedsClarification bool
	FailureReason      string
	Latency            time.Duration
}

// Correct reports an exact score match
func (r EvalResult) Correct() bool {
	return r.Expected == r.Predicted
}

// EvalSummary holds aggregate metrics across all labeled answers.
type EvalSummary struct {
	Total             int
	Accuracy          float64
	MeanAbsoluteError float64
	FallbackRate      float64
	ClarificationRate float64
	AvgConfidence     float64
	AvgLatency        time.Duration
	ByScale           map[entities.AssessmentType]*ScaleSummary
	Results           []EvalResult
}

// ScaleSummary holds metrics grouped by scale.
type ScaleSummary struct {
	Count             int
	Accuracy          float64
	MeanAbsoluteError float64
	FallbackRate      float64
	ClarificationRate float64
}
