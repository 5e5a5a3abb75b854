package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func barthelTransfers() *Question {
	return &Question{
		Code:           "BARTHEL_TRANSFERS",
		Domain:         "transfers",
		AssessmentType: AssessmentTypeADL,
		Answers: []AnswerOption{
			{Text: "Unable", ClinicalScore: 0, Order: 1},
			{Text: "Major help", ClinicalScore: 5, Order: 2},
			{Text: "Minor help", ClinicalScore: 10, Order: 3},
			{Text: "Independent", ClinicalScore: 15, Order: 4},
		},
	}
}

func TestQuestion_ScoreRange(t *testing.T) {
	q := barthelTransfers()

	assert.Equal(t, 0, q.MinScore())
	assert.Equal(t, 15, q.MaxScore())
	assert.True(t, q.AcceptsScore(10))
	assert.False(t, q.AcceptsScore(7))
	assert.False(t, q.AcceptsScore(20))
	assert.False(t, q.AcceptsScore(-5))
}

func TestQuestion_OptionFor(t *testing.T) {
	q := barthelTransfers()

	opt, ok := q.OptionFor(5)
	assert.True(t, ok)
	assert.Equal(t, "Major help", opt.Text)

	_, ok = q.OptionFor(3)
	assert.False(t, ok)
}

func TestQuestion_TopicName(t *testing.T) {
	q := &Question{Domain: "toilet_use"}
	assert.Equal(t, "toilet use", q.TopicName())

	q.Topic = "using the toilet"
	assert.Equal(t, "using the toilet", q.TopicName())
}

func TestAssessmentType_IsValid(t *testing.T) {
	assert.True(t, AssessmentTypeIADL.IsValid())
	assert.True(t, AssessmentTypeADL.IsValid())
	assert.False(t, AssessmentType("MMSE").IsValid())
}
