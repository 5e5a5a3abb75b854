package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/functional-assessment/backend/internal/adapters/events"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/locks"
	"github.com/zatekoja/functional-assessment/backend/internal/adapters/memory"
	"github.com/zatekoja/functional-assessment/backend/internal/application/services"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

type assessmentFixture struct {
	service *services.AssessmentService
	store   *memory.SessionStore
	locker  *locks.LocalLocker
	bus     *events.MemoryEventBus
}

func newAssessmentFixture(t *testing.T, interpreter services.AnswerInterpreter) *assessmentFixture {
	t.Helper()
	store := memory.NewSessionStore()
	f := &assessmentFixture{
		store:  store,
		locker: locks.NewLocalLocker(),
		bus:    events.NewMemoryEventBus(zerolog.Nop()),
	}
	f.service = services.NewAssessmentService(
		newOrchestrator(t, interpreter),
		services.AssessmentStores{Sessions: store, Messages: store, Scores: store},
		f.locker,
		f.bus,
	)
	return f
}

func TestAssessmentService_CreateSession(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	result, err := f.service.CreateSession(ctx, "patient-7", map[string]string{"site": "ward-3"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Session.ID)
	assert.Equal(t, entities.PhaseWelcome, result.Phase)
	assert.NotEmpty(t, result.Message)

	status, err := f.service.GetStatus(ctx, result.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "patient-7", status.PatientID)
	assert.Equal(t, entities.StateWaitingForInput, status.State)
	assert.Equal(t, "0/18", status.Progress)
	assert.Equal(t, 0.0, status.PercentComplete)
	assert.Nil(t, status.CurrentQuestion)

	transcript, err := f.service.GetTranscript(ctx, result.Session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, entities.SpeakerAssistant, transcript[0].Speaker)
}

func TestAssessmentService_FullAssessmentPersistsAndPublishes(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := f.service.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	id := created.Session.ID

	sessionEvents, err := f.bus.Subscribe(ctx, providers.GetSessionChannel(id))
	require.NoError(t, err)

	result, err := f.service.Respond(ctx, id, "yes, let's begin")
	require.NoError(t, err)
	require.Equal(t, entities.PhaseIADL, result.Phase)

	status, err := f.service.GetStatus(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, status.CurrentQuestion)
	assert.Equal(t, entities.AssessmentTypeIADL, status.CurrentQuestion.AssessmentType)
	assert.Equal(t, 1, status.CurrentQuestion.Sequence)

	for i := 0; i < 18; i++ {
		result, err = f.service.Respond(ctx, id, "I do that completely on my own")
		require.NoError(t, err)
	}
	assert.Equal(t, entities.PhaseComplete, result.Phase)
	assert.False(t, result.ShouldContinue)

	summary, err := f.service.GetSummary(ctx, id)
	require.NoError(t, err)
	assert.True(t, summary.Completed)
	assert.Equal(t, 8, summary.Scores.IADL.Total)
	assert.Equal(t, 100, summary.Scores.ADL.Total)
	assert.Len(t, summary.Responses, 18)
	assert.Equal(t, 0, summary.ErrorCount)

	session, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, session.CompletedAt)
	assert.Equal(t, len(session.ConversationHistory), summary.TurnCount)
	assert.Greater(t, summary.TurnCount, 37)

	finalStatus, err := f.service.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 100.0, finalStatus.PercentComplete)

	stored, err := f.store.GetScores(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entities.BandIndependent, stored.ADL.Interpretation)

	_, err = f.service.Respond(ctx, id, "hello again")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSessionTerminal))

	var completed int
	for len(sessionEvents) > 0 {
		if event := <-sessionEvents; event.EventType == entities.EventTypeSessionCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestAssessmentService_RespondWhileBusy(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	created, err := f.service.CreateSession(ctx, "", nil)
	require.NoError(t, err)

	release, err := f.locker.Lock(ctx, created.Session.ID)
	require.NoError(t, err)
	_, err = f.service.Respond(ctx, created.Session.ID, "yes")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	release()

	_, err = f.service.Respond(ctx, created.Session.ID, "yes")
	assert.NoError(t, err)
}

func TestAssessmentService_UnknownSession(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	_, err := f.service.Respond(ctx, "missing", "yes")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	_, err = f.service.GetStatus(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	_, err = f.service.GetTranscript(ctx, "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestAssessmentService_DeleteSession(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := f.service.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	all, err := f.bus.Subscribe(ctx, providers.EventChannelAssessmentEvents)
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteSession(ctx, created.Session.ID))
	_, err = f.service.GetStatus(ctx, created.Session.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	event := <-all
	assert.Equal(t, entities.EventTypeSessionDeleted, event.EventType)
	assert.Equal(t, created.Session.ID, event.SessionID)

	err = f.service.DeleteSession(ctx, created.Session.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestAssessmentService_ListSessions(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	for _, patient := range []string{"p1", "p1", "p2"} {
		_, err := f.service.CreateSession(ctx, patient, nil)
		require.NoError(t, err)
	}

	mine, err := f.service.ListSessions(ctx, repositories.SessionFilter{PatientID: "p1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := f.service.ListSessions(ctx, repositories.SessionFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAssessmentService_Info(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())

	info := f.service.Info()
	assert.Equal(t, 18, info.TotalQuestions)
	require.Len(t, info.Scales, 2)
	assert.Equal(t, entities.AssessmentTypeIADL, info.Scales[0].AssessmentType)
	assert.Equal(t, 8, info.Scales[0].QuestionCount)
	assert.Equal(t, 8, info.Scales[0].MaxScore)
	assert.Equal(t, 10, info.Scales[1].QuestionCount)
	assert.Equal(t, 100, info.Scales[1].MaxScore)
	assert.Len(t, info.Scales[1].Bands, 4)
}

func TestAssessmentService_BuildReport(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	created, err := f.service.CreateSession(ctx, "p1", nil)
	require.NoError(t, err)
	id := created.Session.ID
	for _, input := range []string{"yes", "I use the phone myself", "I shop on my own"} {
		_, err = f.service.Respond(ctx, id, input)
		require.NoError(t, err)
	}

	report, err := f.service.BuildReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "p1", report.PatientID)
	require.Len(t, report.Items, 2)
	assert.Equal(t, 1, report.Items[0].Sequence)
	assert.Equal(t, 2, report.Items[1].Sequence)
	assert.Equal(t, "I use the phone myself", report.Items[0].Answer)
	assert.NotEmpty(t, report.Items[0].Question)
	assert.NotEmpty(t, report.Items[0].OptionText)
	assert.Equal(t, 2, report.Scores.IADL.Total)

	_, _, err = f.service.RenderReport(ctx, id)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

type stubReportRenderer struct{ rendered *entities.AssessmentReport }

func (s *stubReportRenderer) RenderReport(_ context.Context, report *entities.AssessmentReport) ([]byte, error) {
	s.rendered = report
	return []byte("%PDF"), nil
}

func (s *stubReportRenderer) ContentType() string { return "application/pdf" }

func TestAssessmentService_RenderReport(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	renderer := &stubReportRenderer{}
	f.service.SetReportRenderer(renderer)
	ctx := context.Background()

	created, err := f.service.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	id := created.Session.ID

	_, _, err = f.service.RenderReport(ctx, id)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	_, err = f.service.Respond(ctx, id, "yes")
	require.NoError(t, err)
	for i := 0; i < 18; i++ {
		_, err = f.service.Respond(ctx, id, "independently")
		require.NoError(t, err)
	}

	data, contentType, err := f.service.RenderReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, []byte("%PDF"), data)
	require.NotNil(t, renderer.rendered)
	assert.Equal(t, created.Session.ID, renderer.rendered.SessionID)
}

// failingCommits makes the next n commits fail after the turn's own events
// have been applied, by appending a completion event the store rejects
type failingCommits struct {
	*memory.SessionStore
	failures int
}

func (f *failingCommits) CommitTurn(ctx context.Context, session *entities.Session, events []*entities.AssessmentEvent) error {
	if f.failures > 0 {
		f.failures--
		broken := entities.NewAssessmentEvent(session.ID, entities.EventTypeSessionCompleted, "", time.Now())
		events = append(append([]*entities.AssessmentEvent{}, events...), broken)
	}
	return f.SessionStore.CommitTurn(ctx, session, events)
}

func newFailingCommitService(t *testing.T) (*services.AssessmentService, *failingCommits) {
	t.Helper()
	store := &failingCommits{SessionStore: memory.NewSessionStore()}
	service := services.NewAssessmentService(
		newOrchestrator(t, maxScoreInterpreter()),
		services.AssessmentStores{Sessions: store, Messages: store, Scores: store},
		locks.NewLocalLocker(),
		nil,
	)
	return service, store
}

func TestAssessmentService_PersistFailureLeavesSessionUnchanged(t *testing.T) {
	service, store := newFailingCommitService(t)
	ctx := context.Background()

	created, err := service.CreateSession(ctx, "", nil)
	require.NoError(t, err)

	store.failures = 1
	_, err = service.Respond(ctx, created.Session.ID, "yes")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))

	status, err := service.GetStatus(ctx, created.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.PhaseWelcome, status.Phase)

	transcript, err := service.GetTranscript(ctx, created.Session.ID)
	require.NoError(t, err)
	assert.Len(t, transcript, 1)
}

func TestAssessmentService_FailedAnswerCommitCanBeRetried(t *testing.T) {
	service, store := newFailingCommitService(t)
	ctx := context.Background()

	created, err := service.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	id := created.Session.ID
	_, err = service.Respond(ctx, id, "yes")
	require.NoError(t, err)

	store.failures = 1
	_, err = service.Respond(ctx, id, "I use the phone myself")
	require.Error(t, err)

	stored, err := store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, stored.CurrentQuestionIndex)
	assert.Empty(t, stored.Responses)
	assert.Zero(t, stored.ErrorCount)
	assert.Len(t, stored.Responses, stored.CurrentQuestionIndex)

	// The same answer goes through once the store recovers, and the next
	// ones keep advancing.
	for i := 1; i <= 3; i++ {
		result, err := service.Respond(ctx, id, "I use the phone myself")
		require.NoError(t, err)
		assert.False(t, result.Failed)
		assert.True(t, result.ShouldContinue)
		assert.Equal(t, i, result.ResponsesCompleted)
	}

	stored, err = store.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentQuestionIndex)
	require.Len(t, stored.Responses, 3)
	assert.Zero(t, stored.ErrorCount)
	first, err := service.Orchestrator().Catalog().QuestionAt(entities.PhaseIADL, 0)
	require.NoError(t, err)
	assert.Equal(t, first.Code, stored.Responses[0].QuestionCode)
}

func TestAssessmentService_SummaryUsesStoredScores(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	created, err := f.service.CreateSession(ctx, "", nil)
	require.NoError(t, err)
	id := created.Session.ID
	for _, input := range append([]string{"yes"}, repeatAnswer("I manage it alone", 18)...) {
		_, err = f.service.Respond(ctx, id, input)
		require.NoError(t, err)
	}

	// Scores recorded at completion win over a recomputation.
	session, err := f.store.GetByID(ctx, id)
	require.NoError(t, err)
	amended := entities.NewAssessmentEvent(id, entities.EventTypeSessionCompleted, "", time.Now())
	amended.Scores = &entities.AssessmentScores{
		IADL: entities.ScaleScore{AssessmentType: entities.AssessmentTypeIADL, Total: 7},
		ADL:  entities.ScaleScore{AssessmentType: entities.AssessmentTypeADL, Total: 95},
	}
	require.NoError(t, f.store.CommitTurn(ctx, session, []*entities.AssessmentEvent{amended}))

	summary, err := f.service.GetSummary(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Scores.IADL.Total)
	assert.Equal(t, 95, summary.Scores.ADL.Total)

	report, err := f.service.BuildReport(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 95, report.Scores.ADL.Total)
}

func repeatAnswer(answer string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = answer
	}
	return out
}

func TestAssessmentService_SummaryDuration(t *testing.T) {
	f := newAssessmentFixture(t, maxScoreInterpreter())
	ctx := context.Background()

	created, err := f.service.CreateSession(ctx, "", nil)
	require.NoError(t, err)

	summary, err := f.service.GetSummary(ctx, created.Session.ID)
	require.NoError(t, err)
	assert.False(t, summary.Completed)
	assert.GreaterOrEqual(t, summary.DurationMinutes, 0.0)
	assert.Less(t, summary.DurationMinutes, float64(time.Minute))
	assert.Equal(t, 0, summary.Scores.IADL.ResponseCount)
}
