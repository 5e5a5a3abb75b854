package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/catalog"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/providers/messaging"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

func standardCatalog(t *testing.T) *services.QuestionCatalog {
	t.Helper()
	adapter, err := catalog.NewStandardQuestionAdapter()
	require.NoError(t, err)
	c, err := services.LoadQuestionCatalog(context.Background(), adapter)
	require.NoError(t, err)
	return c
}

// scriptedInterpreter answers with a caller-supplied function and records inputs
type scriptedInterpreter struct {
	mu      sync.Mutex
	fn      func(call int, q *entities.Question, answer string) services.InterpretationOutcome
	answers []string
}

func (s *scriptedInterpreter) Interpret(_ context.Context, q *entities.Question, answer string) services.InterpretationOutcome {
	s.mu.Lock()
	call := len(s.answers)
	s.answers = append(s.answers, answer)
	s.mu.Unlock()
	return s.fn(call, q, answer)
}

func accept(score int, confidence float64) services.InterpretationOutcome {
	return services.InterpretationOutcome{Interpretation: entities.ScoreInterpretation{
		InterpretedScore: score,
		Confidence:       confidence,
		Reasoning:        "stub",
	}}
}

// maxScoreInterpreter accepts every answer at the question's highest score
func maxScoreInterpreter() *scriptedInterpreter {
	return &scriptedInterpreter{fn: func(_ int, q *entities.Question, _ string) services.InterpretationOutcome {
		return accept(q.MaxScore(), 0.95)
	}}
}

type panickingInterpreter struct{}

func (panickingInterpreter) Interpret(context.Context, *entities.Question, string) services.InterpretationOutcome {
	panic("interpreter exploded")
}

// failingRenderer fails for the listed kinds and delegates the rest
type failingRenderer struct {
	next  providers.MessageRenderer
	kinds map[providers.MessageKind]bool
}

func (f *failingRenderer) RenderMessage(ctx context.Context, kind providers.MessageKind, mc providers.MessageContext) (string, error) {
	if f.kinds[kind] {
		return "", context.DeadlineExceeded
	}
	return f.next.RenderMessage(ctx, kind, mc)
}

func newOrchestrator(t *testing.T, interpreter services.AnswerInterpreter) *services.ConversationOrchestrator {
	t.Helper()
	return services.NewConversationOrchestrator(standardCatalog(t), interpreter, messaging.NewTemplateRenderer(), services.OrchestratorConfig{})
}

// startedSession returns a session that has seen the welcome and consented
func startedSession(t *testing.T, o *services.ConversationOrchestrator) *entities.Session {
	t.Helper()
	ctx := context.Background()
	result, err := o.Start(ctx, entities.NewSession("sess-1", "patient-1", time.Now()))
	require.NoError(t, err)
	result, err = o.Submit(ctx, result.Session, "yes")
	require.NoError(t, err)
	require.Equal(t, entities.PhaseIADL, result.Phase)
	return result.Session
}

func eventsOfType(events []*entities.AssessmentEvent, eventType entities.AssessmentEventType) []*entities.AssessmentEvent {
	var out []*entities.AssessmentEvent
	for _, e := range events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
