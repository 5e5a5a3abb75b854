package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

// AssessmentStores groups the session store collaborators
type AssessmentStores struct {
	Sessions repositories.SessionRepository
	Messages repositories.MessageRepository
	Scores   repositories.ScoreRepository
}

// QuestionView is the public shape of the open question
type QuestionView struct {
	Code           string                  `json:"code"`
	Domain         string                  `json:"domain"`
	AssessmentType entities.AssessmentType `json:"assessment_type"`
	Sequence       int                     `json:"sequence"`
	Text           string                  `json:"text"`
}

// SessionStatus is the progress view of a session
type SessionStatus struct {
	SessionID          string                `json:"session_id"`
	PatientID          string                `json:"patient_id,omitempty"`
	Phase              entities.Phase        `json:"phase"`
	State              entities.SessionState `json:"state"`
	Progress           string                `json:"progress"`
	PercentComplete    float64               `json:"percent_complete"`
	ResponsesCompleted int                   `json:"responses_completed"`
	TotalQuestions     int                   `json:"total_questions"`
	CurrentQuestion    *QuestionView         `json:"current_question,omitempty"`
	ShouldContinue     bool                  `json:"should_continue"`
	ErrorCount         int                   `json:"error_count"`
	StartedAt          time.Time             `json:"started_at"`
	LastActivity       time.Time             `json:"last_activity"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
}

// SessionSummary is the scored view of a session
type SessionSummary struct {
	SessionID       string                        `json:"session_id"`
	PatientID       string                        `json:"patient_id,omitempty"`
	Phase           entities.Phase                `json:"phase"`
	Completed       bool                          `json:"completed"`
	Scores          *entities.AssessmentScores    `json:"scores"`
	Responses       []entities.AssessmentResponse `json:"responses"`
	ErrorCount      int                           `json:"error_count"`
	TurnCount       int                           `json:"conversation_turns"`
	StartedAt       time.Time                     `json:"started_at"`
	CompletedAt     *time.Time                    `json:"completed_at,omitempty"`
	DurationMinutes float64                       `json:"duration_minutes"`
}

// ScaleInfo describes one scale of the assessment
type ScaleInfo struct {
	AssessmentType entities.AssessmentType `json:"assessment_type"`
	Name           string                  `json:"name"`
	QuestionCount  int                     `json:"question_count"`
	MaxScore       int                     `json:"max_score"`
	Bands          []BandCutoff            `json:"bands"`
	Questions      []QuestionView          `json:"questions"`
}

// AssessmentInfo describes the administered assessment
type AssessmentInfo struct {
	TotalQuestions int         `json:"total_questions"`
	Scales         []ScaleInfo `json:"scales"`
}

// AssessmentService runs turns against stored sessions. It serializes turns
// per session, persists the events a turn emits and publishes them.
type AssessmentService struct {
	orchestrator *ConversationOrchestrator
	stores       AssessmentStores
	locker       providers.SessionLocker
	eventBus     providers.EventBus
	reports      providers.ReportRenderer
	now          func() time.Time
	logger       zerolog.Logger
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(
	orchestrator *ConversationOrchestrator,
	stores AssessmentStores,
	locker providers.SessionLocker,
	eventBus providers.EventBus,
) *AssessmentService {
	return &AssessmentService{
		orchestrator: orchestrator,
		stores:       stores,
		locker:       locker,
		eventBus:     eventBus,
		now:          time.Now,
		logger:       zerolog.Nop(),
	}
}

// SetLogger sets the service logger
func (s *AssessmentService) SetLogger(logger zerolog.Logger) {
	s.logger = logger
}

// SetReportRenderer enables report downloads
func (s *AssessmentService) SetReportRenderer(renderer providers.ReportRenderer) {
	s.reports = renderer
}

// Orchestrator returns the state machine the service drives
func (s *AssessmentService) Orchestrator() *ConversationOrchestrator {
	return s.orchestrator
}

// CreateSession creates a session and runs its welcome turn
func (s *AssessmentService) CreateSession(ctx context.Context, patientID string, metadata map[string]string) (*TurnResult, error) {
	ctx, span := observability.StartSpan(ctx, "assessment.create_session")
	defer span.End()

	session := entities.NewSession(uuid.NewString(), patientID, s.now())
	for k, v := range metadata {
		session.Metadata[k] = v
	}
	if err := s.stores.Sessions.Create(ctx, session); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	result, err := s.orchestrator.Start(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := s.persistTurn(ctx, result); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.logger.Info().Str("session_id", session.ID).Msg("assessment session created")
	return result, nil
}

// Respond submits one user turn to a session
func (s *AssessmentService) Respond(ctx context.Context, sessionID, input string) (*TurnResult, error) {
	ctx, span := observability.StartSpan(ctx, "assessment.respond")
	defer span.End()

	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Submit(ctx, session, input)
	if err != nil {
		return nil, err
	}
	if err := s.persistTurn(ctx, result); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// GetStatus returns the progress of a session
func (s *AssessmentService) GetStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.status(session), nil
}

// GetSummary returns the stored scores of a completed session, or scores
// computed from the responses accepted so far
func (s *AssessmentService) GetSummary(ctx context.Context, sessionID string) (*SessionSummary, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	end := s.now()
	if session.CompletedAt != nil {
		end = *session.CompletedAt
	}

	return &SessionSummary{
		SessionID:       session.ID,
		PatientID:       session.PatientID,
		Phase:           session.Phase,
		Completed:       session.IsComplete(),
		Scores:          s.scores(ctx, session),
		Responses:       session.Responses,
		ErrorCount:      session.ErrorCount,
		TurnCount:       len(session.ConversationHistory),
		StartedAt:       session.StartedAt,
		CompletedAt:     session.CompletedAt,
		DurationMinutes: round2(end.Sub(session.StartedAt).Minutes()),
	}, nil
}

// GetTranscript returns the stored conversation log
func (s *AssessmentService) GetTranscript(ctx context.Context, sessionID string) ([]entities.ConversationMessage, error) {
	if _, err := s.stores.Sessions.GetByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.stores.Messages.ListMessages(ctx, sessionID)
}

// DeleteSession removes a session and its records
func (s *AssessmentService) DeleteSession(ctx context.Context, sessionID string) error {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.stores.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}

	s.publish(ctx, []*entities.AssessmentEvent{
		entities.NewAssessmentEvent(sessionID, entities.EventTypeSessionDeleted, "", s.now()),
	})
	s.logger.Info().Str("session_id", sessionID).Msg("assessment session deleted")
	return nil
}

// ListSessions returns session progress views
func (s *AssessmentService) ListSessions(ctx context.Context, filter repositories.SessionFilter) ([]*SessionStatus, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	sessions, err := s.stores.Sessions.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]*SessionStatus, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, s.status(session))
	}
	return out, nil
}

// Info describes the scales and questions of the assessment
func (s *AssessmentService) Info() *AssessmentInfo {
	c := s.orchestrator.Catalog()
	scale := func(kind entities.AssessmentType, name string, questions []*entities.Question) ScaleInfo {
		views := make([]QuestionView, 0, len(questions))
		for _, q := range questions {
			views = append(views, questionView(q))
		}
		return ScaleInfo{
			AssessmentType: kind,
			Name:           name,
			QuestionCount:  len(questions),
			MaxScore:       c.MaxScore(kind),
			Bands:          BandCutoffs(kind),
			Questions:      views,
		}
	}

	return &AssessmentInfo{
		TotalQuestions: c.TotalQuestions(),
		Scales: []ScaleInfo{
			scale(entities.AssessmentTypeIADL, "Lawton Instrumental Activities of Daily Living", c.IADLQuestions()),
			scale(entities.AssessmentTypeADL, "Barthel Index of Activities of Daily Living", c.ADLQuestions()),
		},
	}
}

// BuildReport assembles the printable record of a session
func (s *AssessmentService) BuildReport(ctx context.Context, sessionID string) (*entities.AssessmentReport, error) {
	session, err := s.stores.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c := s.orchestrator.Catalog()
	items := make([]entities.ReportItem, 0, len(session.Responses))
	for _, r := range session.Responses {
		item := entities.ReportItem{
			QuestionCode:   r.QuestionCode,
			AssessmentType: r.AssessmentType,
			Answer:         r.UserResponseText,
			Score:          r.InterpretedScore,
			Confidence:     r.Confidence,
			Clarified:      r.Clarified,
		}
		if q, ok := c.Lookup(r.QuestionCode); ok {
			item.Sequence = q.Sequence
			item.Question = q.Text
			item.MaxScore = q.MaxScore()
			if opt, ok := q.OptionFor(r.InterpretedScore); ok {
				item.OptionText = opt.Text
			}
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].AssessmentType != items[j].AssessmentType {
			return items[i].AssessmentType == entities.AssessmentTypeIADL
		}
		return items[i].Sequence < items[j].Sequence
	})

	return &entities.AssessmentReport{
		SessionID:   session.ID,
		PatientID:   session.PatientID,
		Phase:       session.Phase,
		StartedAt:   session.StartedAt,
		CompletedAt: session.CompletedAt,
		GeneratedAt: s.now(),
		Scores:      s.scores(ctx, session),
		Items:       items,
	}, nil
}

// RenderReport renders the report of a completed session
func (s *AssessmentService) RenderReport(ctx context.Context, sessionID string) ([]byte, string, error) {
	if s.reports == nil {
		return nil, "", apperrors.NewValidationError("report rendering is not configured")
	}
	report, err := s.BuildReport(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	if report.CompletedAt == nil {
		return nil, "", apperrors.NewConflictError(fmt.Sprintf("session %s has not completed the assessment", sessionID))
	}
	data, err := s.reports.RenderReport(ctx, report)
	if err != nil {
		return nil, "", apperrors.NewInternalError("failed to render report", err)
	}
	return data, s.reports.ContentType(), nil
}

// persistTurn commits the turn's events and progress record as one unit,
// then publishes. Responses are keyed by the question code carried on the
// event. A failed commit leaves the stored session as it was before the turn.
func (s *AssessmentService) persistTurn(ctx context.Context, result *TurnResult) error {
	if err := s.stores.Sessions.CommitTurn(ctx, result.Session, result.Events); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return err
		}
		return apperrors.NewInternalError("failed to persist turn", err)
	}

	s.publish(ctx, result.Events)
	return nil
}

// scores reads the totals stored at completion. Sessions still in progress,
// and completed sessions whose scores cannot be read, are aggregated from
// their responses.
func (s *AssessmentService) scores(ctx context.Context, session *entities.Session) *entities.AssessmentScores {
	if session.IsComplete() && s.stores.Scores != nil {
		stored, err := s.stores.Scores.GetScores(ctx, session.ID)
		if err == nil {
			return stored
		}
		s.logger.Warn().Err(err).Str("session_id", session.ID).Msg("stored scores unavailable, recomputing")
	}
	return s.orchestrator.Aggregator().Aggregate(session.Responses)
}

func (s *AssessmentService) publish(ctx context.Context, events []*entities.AssessmentEvent) {
	if s.eventBus == nil {
		return
	}
	for _, event := range events {
		for _, channel := range []string{providers.EventChannelAssessmentEvents, providers.GetSessionChannel(event.SessionID)} {
			if err := s.eventBus.Publish(ctx, channel, event); err != nil {
				s.logger.Warn().Err(err).Str("session_id", event.SessionID).Str("channel", channel).
					Msg("failed to publish assessment event")
			}
		}
	}
}

func (s *AssessmentService) lock(ctx context.Context, sessionID string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Lock(ctx, sessionID)
	if errors.Is(err, providers.ErrSessionBusy) {
		return nil, apperrors.NewConflictError(fmt.Sprintf("session %s is processing another turn", sessionID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to acquire session lock", err)
	}
	return release, nil
}

func (s *AssessmentService) status(session *entities.Session) *SessionStatus {
	o := s.orchestrator
	total := o.Catalog().TotalQuestions()
	status := &SessionStatus{
		SessionID:          session.ID,
		PatientID:          session.PatientID,
		Phase:              session.Phase,
		State:              session.State,
		Progress:           o.Progress(session),
		PercentComplete:    round2(float64(len(session.Responses)) / float64(total) * 100),
		ResponsesCompleted: len(session.Responses),
		TotalQuestions:     total,
		ShouldContinue:     !session.IsComplete() && session.ErrorCount < o.cfg.MaxErrors,
		ErrorCount:         session.ErrorCount,
		StartedAt:          session.StartedAt,
		LastActivity:       session.LastActivity,
		CompletedAt:        session.CompletedAt,
	}
	if q, ok := o.CurrentQuestion(session); ok {
		view := questionView(q)
		status.CurrentQuestion = &view
	}
	return status
}

func questionView(q *entities.Question) QuestionView {
	return QuestionView{
		Code:           q.Code,
		Domain:         q.Domain,
		AssessmentType: q.AssessmentType,
		Sequence:       q.Sequence,
		Text:           q.Text,
	}
}
