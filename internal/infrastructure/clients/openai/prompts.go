package openai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

const interpretationSystemPrompt = `You are a clinical assessment expert. Your task is to interpret a patient's free-form answer to a standardized functional assessment question and map it to the appropriate clinical score.

Guidelines:
1. Match the patient's response to the most appropriate answer option
2. Consider the functional level described, not just specific words
3. Score typical current performance, not best possible performance
4. If the response is ambiguous, set needs_clarification and suggest one short follow-up question
5. Provide your confidence from 0.0 to 1.0 and explain your reasoning briefly

Return ONLY valid JSON with these exact field names:
{
  "interpreted_score": integer (must be one of the listed option scores),
  "confidence": number between 0.0 and 1.0,
  "reasoning": string,
  "needs_clarification": boolean,
  "clarification_question": string or null
}`

const messageSystemPrompt = `You are a compassionate clinical assessment assistant administering the Lawton IADL scale and the Barthel ADL index through conversation. Use warm, plain language at an 8th grade reading level. Never give medical advice, never mention scores unless asked to summarize results, and keep each message under 120 words. Reply with the message text only.`

// interpretationPayload uses pointers so missing fields are detected
type interpretationPayload struct {
	InterpretedScore      *float64 `json:"interpreted_score"`
	Confidence            *float64 `json:"confidence"`
	Reasoning             string   `json:"reasoning"`
	NeedsClarification    bool     `json:"needs_clarification"`
	ClarificationQuestion *string  `json:"clarification_question"`
}

func buildInterpretationUserPrompt(q *entities.Question, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scale: %s\nQuestion: %s\n", q.AssessmentType, q.Text)
	if q.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", q.Description)
	}
	b.WriteString("\nAvailable answer options and scores:\n")
	for _, a := range q.Answers {
		fmt.Fprintf(&b, "Score %d: %s\n", a.ClinicalScore, a.Text)
	}
	fmt.Fprintf(&b, "\nPatient's response: %q\n", answer)
	return b.String()
}

func parseInterpretationPayload(data []byte) (entities.ScoreInterpretation, error) {
	var payload interpretationPayload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&payload); err != nil {
		return entities.ScoreInterpretation{}, fmt.Errorf("failed to parse interpretation payload: %w", err)
	}
	if payload.InterpretedScore == nil {
		return entities.ScoreInterpretation{}, errors.New("interpretation payload missing interpreted_score")
	}
	if payload.Confidence == nil {
		return entities.ScoreInterpretation{}, errors.New("interpretation payload missing confidence")
	}
	score := *payload.InterpretedScore
	if score != math.Trunc(score) {
		return entities.ScoreInterpretation{}, fmt.Errorf("interpreted_score %v is not an integer", score)
	}

	interp := entities.ScoreInterpretation{
		InterpretedScore:   int(score),
		Confidence:         *payload.Confidence,
		Reasoning:          payload.Reasoning,
		NeedsClarification: payload.NeedsClarification,
	}
	if payload.ClarificationQuestion != nil {
		interp.ClarificationQuestion = *payload.ClarificationQuestion
	}
	return interp, nil
}

func buildMessageUserPrompt(kind providers.MessageKind, mc providers.MessageContext) string {
	var b strings.Builder
	switch kind {
	case providers.MessageKindWelcome:
		fmt.Fprintf(&b, "Write a short welcome. Explain that you will ask %d questions about everyday activities, first instrumental activities such as shopping and managing money, then basic self-care. Ask whether they are ready to begin.", mc.TotalQuestions)
	case providers.MessageKindConsentReminder:
		b.WriteString(`Gently remind the patient to say "yes" or "I'm ready" when they want to begin.`)
	case providers.MessageKindQuestion:
		fmt.Fprintf(&b, "Ask question %d of %d conversationally, keeping its meaning exact.\n", mc.QuestionNumber, mc.TotalQuestions)
	case providers.MessageKindClarification:
		b.WriteString("The patient's last answer was ambiguous. Ask one short follow-up question.\n")
		if mc.ClarificationQuestion != "" {
			fmt.Fprintf(&b, "Suggested follow-up: %s\n", mc.ClarificationQuestion)
		}
	case providers.MessageKindTransition:
		fmt.Fprintf(&b, "Thank the patient for completing the %s questions and introduce the %s questions in two or three sentences.", strings.ToUpper(string(mc.Phase)), strings.ToUpper(string(mc.NextPhase)))
	case providers.MessageKindCompletion:
		b.WriteString("Thank the patient for completing the assessment and briefly summarize the results.\n")
		if s := mc.Scores; s != nil {
			fmt.Fprintf(&b, "Lawton IADL: %d of %d (%s). Barthel ADL: %d of %d (%s).\n",
				s.IADL.Total, s.IADL.MaxScore, s.IADL.Interpretation, s.ADL.Total, s.ADL.MaxScore, s.ADL.Interpretation)
		}
	case providers.MessageKindError:
		b.WriteString("Apologize briefly for a technical problem and ask the patient to repeat their last answer.\n")
	}

	if q := mc.Question; q != nil {
		fmt.Fprintf(&b, "Activity: %s\nQuestion: %s\n", q.TopicName(), q.Text)
	}
	return b.String()
}
