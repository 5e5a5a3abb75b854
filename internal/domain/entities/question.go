package entities

import "strings"

// AssessmentType identifies which clinical scale a question belongs to
type AssessmentType string

const (
	AssessmentTypeIADL AssessmentType = "IADL" // Lawton instrumental activities
	AssessmentTypeADL  AssessmentType = "ADL"  // Barthel basic activities
)

// IsValid checks if the assessment type is one of the defined constants.
func (t AssessmentType) IsValid() bool {
	switch t {
	case AssessmentTypeIADL, AssessmentTypeADL:
		return true
	}
	return false
}

// AnswerOption is one scored choice on a clinical scale item
type AnswerOption struct {
	Text          string `json:"text" yaml:"text" db:"text"`
	ClinicalScore int    `json:"clinical_score" yaml:"clinical_score" db:"clinical_score"`
	Order         int    `json:"order" yaml:"order" db:"answer_order"`
}

// Question is a single catalog item. Immutable for the lifetime of a session.
type Question struct {
	Code           string         `json:"code" yaml:"code" db:"code"`
	Domain         string         `json:"domain" yaml:"domain" db:"domain"`
	Topic          string         `json:"topic,omitempty" yaml:"topic" db:"topic"`
	Sequence       int            `json:"sequence" yaml:"sequence" db:"sequence"`
	AssessmentType AssessmentType `json:"assessment_type" yaml:"assessment_type" db:"assessment_type"`
	Text           string         `json:"text" yaml:"text" db:"text"`
	Description    string         `json:"description" yaml:"description" db:"description"`
	Answers        []AnswerOption `json:"answers" yaml:"answers" db:"-"`
}

// MinScore returns the lowest clinical score among the answer options
func (q *Question) MinScore() int {
	if len(q.Answers) == 0 {
		return 0
	}
	lowest := q.Answers[0].ClinicalScore
	for _, a := range q.Answers[1:] {
		if a.ClinicalScore < lowest {
			lowest = a.ClinicalScore
		}
	}
	return lowest
}

// MaxScore returns the highest clinical score among the answer options
func (q *Question) MaxScore() int {
	highest := 0
	for _, a := range q.Answers {
		if a.ClinicalScore > highest {
			highest = a.ClinicalScore
		}
	}
	return highest
}

// AcceptsScore reports whether score is one of the question's option scores
func (q *Question) AcceptsScore(score int) bool {
	for _, a := range q.Answers {
		if a.ClinicalScore == score {
			return true
		}
	}
	return false
}

// OptionFor returns the answer option carrying the given score
func (q *Question) OptionFor(score int) (AnswerOption, bool) {
	for _, a := range q.Answers {
		if a.ClinicalScore == score {
			return a, true
		}
	}
	return AnswerOption{}, false
}

// TopicName returns the patient-facing name of the activity
func (q *Question) TopicName() string {
	if q.Topic != "" {
		return q.Topic
	}
	return strings.ReplaceAll(strings.ToLower(q.Domain), "_", " ")
}
