package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
	"github.com/zatekoja/functional-assessment/backend/pkg/utils"
)

// DefaultMaxErrors is the error ceiling after which a session stops accepting turns
const DefaultMaxErrors = 3

// maxStepsPerTurn bounds node dispatch within one turn
const maxStepsPerTurn = 8

// consentTokens are matched by substring against the lowercased reply
var consentTokens = []string{"yes", "y", "ok", "okay", "sure", "ready", "begin", "start"}

// node is one transition function of the conversation state machine
type node string

const (
	nodeWelcome            node = "welcome"
	nodeConsent            node = "consent"
	nodeAskQuestion        node = "ask_question"
	nodeProcessResponse    node = "process_response"
	nodeClarifyResponse    node = "clarify_response"
	nodeAdvanceQuestion    node = "advance_question"
	nodeTransitionPhase    node = "transition_phase"
	nodeCompleteAssessment node = "complete_assessment"
	nodeWait               node = "wait"
)

// OrchestratorConfig tunes the conversation state machine
type OrchestratorConfig struct {
	MaxErrors int
	// ClarificationThreshold, when positive, also requests clarification for
	// interpretations below this confidence. Zero leaves the decision to the interpreter.
	ClarificationThreshold float64
}

// TurnResult is what the transport receives after Start or Submit
type TurnResult struct {
	Session            *entities.Session             `json:"-"`
	Message            string                        `json:"message"`
	Phase              entities.Phase                `json:"phase"`
	State              entities.SessionState         `json:"state"`
	Progress           string                        `json:"progress"`
	ResponsesCompleted int                           `json:"responses_completed"`
	TotalQuestions     int                           `json:"total_questions"`
	ShouldContinue     bool                          `json:"should_continue"`
	NeedsClarification bool                          `json:"needs_clarification"`
	Interpretation     *entities.ScoreInterpretation `json:"interpretation,omitempty"`
	Scores             *entities.AssessmentScores    `json:"scores,omitempty"`
	Events             []*entities.AssessmentEvent   `json:"-"`
	Failed             bool                          `json:"-"`
}

// ConversationOrchestrator drives one session through welcome, IADL, ADL and
// completion. It keeps no state between calls: every turn works on a copy
// of the given session and returns the copy only if the turn succeeded.
type ConversationOrchestrator struct {
	catalog     *QuestionCatalog
	interpreter AnswerInterpreter
	renderer    providers.MessageRenderer
	aggregator  *ScoreAggregator
	cfg         OrchestratorConfig
	now         func() time.Time
	logger      zerolog.Logger
	metrics     *observability.Metrics
}

// NewConversationOrchestrator creates a new orchestrator
func NewConversationOrchestrator(
	catalog *QuestionCatalog,
	interpreter AnswerInterpreter,
	renderer providers.MessageRenderer,
	cfg OrchestratorConfig,
) *ConversationOrchestrator {
	if cfg.MaxErrors <= 0 {
		cfg.MaxErrors = DefaultMaxErrors
	}
	return &ConversationOrchestrator{
		catalog:     catalog,
		interpreter: interpreter,
		renderer:    renderer,
		aggregator:  NewScoreAggregator(catalog),
		cfg:         cfg,
		now:         time.Now,
		logger:      zerolog.Nop(),
	}
}

// SetLogger sets the logger used for turn failures
func (o *ConversationOrchestrator) SetLogger(logger zerolog.Logger) {
	o.logger = logger
}

// SetMetrics enables turn metrics
func (o *ConversationOrchestrator) SetMetrics(metrics *observability.Metrics) {
	o.metrics = metrics
}

// Catalog returns the question catalog the orchestrator sequences
func (o *ConversationOrchestrator) Catalog() *QuestionCatalog {
	return o.catalog
}

// Aggregator returns the score aggregator used at completion
func (o *ConversationOrchestrator) Aggregator() *ScoreAggregator {
	return o.aggregator
}

// Start runs the welcome node for a fresh session
func (o *ConversationOrchestrator) Start(ctx context.Context, session *entities.Session) (*TurnResult, error) {
	if session == nil {
		return nil, apperrors.NewValidationError("session is required")
	}
	if session.Phase != entities.PhaseWelcome || session.State != entities.StateInitializing {
		return nil, apperrors.NewValidationError(fmt.Sprintf("session %s has already started", session.ID))
	}
	return o.runTurn(ctx, session, nodeWelcome, ""), nil
}

// Submit advances the session by exactly one user turn. Sessions that are
// complete or out of error budget are rejected without mutation.
func (o *ConversationOrchestrator) Submit(ctx context.Context, session *entities.Session, input string) (*TurnResult, error) {
	if session == nil {
		return nil, apperrors.NewValidationError("session is required")
	}
	if session.IsComplete() {
		return nil, apperrors.NewSessionTerminalError(session.ID, "assessment already completed")
	}
	if session.ErrorCount >= o.cfg.MaxErrors {
		return nil, apperrors.NewSessionTerminalError(session.ID, "too many errors, start a new session")
	}

	entry := nodeProcessResponse
	if session.Phase == entities.PhaseWelcome {
		entry = nodeConsent
		if session.State == entities.StateInitializing {
			entry = nodeWelcome
		}
	}

	return o.runTurn(ctx, session, entry, utils.NormalizeUtterance(input)), nil
}

// CurrentQuestion returns the question open in a session, if any
func (o *ConversationOrchestrator) CurrentQuestion(session *entities.Session) (*entities.Question, bool) {
	if !session.Phase.IsQuestionPhase() {
		return nil, false
	}
	q, err := o.catalog.QuestionAt(session.Phase, session.CurrentQuestionIndex)
	if err != nil {
		return nil, false
	}
	return q, true
}

// Progress renders the responses-completed/total counter
func (o *ConversationOrchestrator) Progress(session *entities.Session) string {
	return fmt.Sprintf("%d/%d", len(session.Responses), o.catalog.TotalQuestions())
}

// turn is the working state of one dispatch
type turn struct {
	session   *entities.Session
	input     string
	startedAt time.Time

	// question open before the turn began
	question     *entities.Question
	questionCode string

	resumedClarification bool
	answerText           string
	interpretation       *entities.ScoreInterpretation
	scores               *entities.AssessmentScores

	assistant []string
	events    []*entities.AssessmentEvent
}

func (o *ConversationOrchestrator) runTurn(ctx context.Context, original *entities.Session, entry node, input string) *TurnResult {
	ctx, span := observability.StartSpan(ctx, "orchestrator.turn")
	defer span.End()

	t := &turn{
		session:   original.Clone(),
		input:     input,
		startedAt: o.now(),
	}
	if q, ok := o.CurrentQuestion(original); ok {
		t.question = q
		t.questionCode = q.Code
	}

	if err := o.execute(ctx, t, entry); err != nil {
		observability.RecordError(span, err)
		result := o.handleError(ctx, original, t, err)
		observability.RecordTurn(ctx, o.metrics, string(original.Phase), "error", o.now().Sub(t.startedAt))
		return result
	}

	t.session.Touch(o.now())
	observability.RecordTurn(ctx, o.metrics, string(t.session.Phase), "ok", o.now().Sub(t.startedAt))
	return o.result(t, false)
}

// execute dispatches nodes until one waits for input. Panics inside a node
// are returned as errors so the turn boundary can handle them.
func (o *ConversationOrchestrator) execute(ctx context.Context, t *turn, entry node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("turn panicked: %v", r), nil)
		}
	}()

	next := entry
	for steps := 0; next != nodeWait; steps++ {
		if steps >= maxStepsPerTurn {
			return apperrors.NewTransitionError(fmt.Sprintf("turn exceeded %d steps at node %s", maxStepsPerTurn, next))
		}
		if next, err = o.step(ctx, t, next); err != nil {
			return err
		}
	}
	return nil
}

func (o *ConversationOrchestrator) step(ctx context.Context, t *turn, n node) (node, error) {
	switch n {
	case nodeWelcome:
		return o.welcome(ctx, t)
	case nodeConsent:
		return o.consent(ctx, t)
	case nodeAskQuestion:
		return o.askQuestion(ctx, t)
	case nodeProcessResponse:
		return o.processResponse(ctx, t)
	case nodeClarifyResponse:
		return o.clarifyResponse(ctx, t)
	case nodeAdvanceQuestion:
		return o.advanceQuestion(ctx, t)
	case nodeTransitionPhase:
		return o.transitionPhase(ctx, t)
	case nodeCompleteAssessment:
		return o.completeAssessment(ctx, t)
	}
	return nodeWait, apperrors.NewTransitionError(fmt.Sprintf("unknown node %q", n))
}

func (o *ConversationOrchestrator) welcome(ctx context.Context, t *turn) (node, error) {
	s := t.session
	if s.Phase != entities.PhaseWelcome || s.State != entities.StateInitializing {
		return nodeWait, o.invalidState(nodeWelcome, s)
	}

	text, err := o.render(ctx, providers.MessageKindWelcome, providers.MessageContext{
		Phase:          s.Phase,
		TotalQuestions: o.catalog.TotalQuestions(),
	})
	if err != nil {
		return nodeWait, err
	}
	o.say(t, entities.MessageTypeWelcome, text, "")
	s.State = entities.StateWaitingForInput

	if t.input == "" {
		return nodeWait, nil
	}
	return nodeConsent, nil
}

func (o *ConversationOrchestrator) consent(ctx context.Context, t *turn) (node, error) {
	s := t.session
	if s.Phase != entities.PhaseWelcome || s.State != entities.StateWaitingForInput {
		return nodeWait, o.invalidState(nodeConsent, s)
	}

	if t.input != "" {
		o.hear(t, entities.MessageTypeConsentReply, t.input, "")
		if utils.ContainsAny(t.input, consentTokens) {
			s.Phase = entities.PhaseIADL
			s.CurrentQuestionIndex = 0
			o.progressChanged(t)
			return nodeAskQuestion, nil
		}
	}

	text, err := o.render(ctx, providers.MessageKindConsentReminder, providers.MessageContext{
		Phase:          s.Phase,
		TotalQuestions: o.catalog.TotalQuestions(),
	})
	if err != nil {
		return nodeWait, err
	}
	o.say(t, entities.MessageTypeConsentReminder, text, "")
	return nodeWait, nil
}

func (o *ConversationOrchestrator) askQuestion(ctx context.Context, t *turn) (node, error) {
	s := t.session
	q, err := o.catalog.QuestionAt(s.Phase, s.CurrentQuestionIndex)
	if err != nil {
		return nodeWait, err
	}

	text, err := o.render(ctx, providers.MessageKindQuestion, providers.MessageContext{
		Phase:          s.Phase,
		Question:       q,
		QuestionNumber: s.CurrentQuestionIndex + 1,
		TotalQuestions: o.catalog.TotalQuestions(),
	})
	if err != nil {
		return nodeWait, err
	}
	o.say(t, entities.MessageTypeQuestion, text, q.Code)
	s.State = entities.StateWaitingForInput
	return nodeWait, nil
}

func (o *ConversationOrchestrator) processResponse(ctx context.Context, t *turn) (node, error) {
	s := t.session
	if !s.Phase.IsQuestionPhase() ||
		(s.State != entities.StateWaitingForInput && s.State != entities.StateAwaitingClarification) {
		return nodeWait, o.invalidState(nodeProcessResponse, s)
	}
	if t.question == nil {
		return nodeWait, apperrors.NewTransitionError(fmt.Sprintf("no open question at %s/%d", s.Phase, s.CurrentQuestionIndex))
	}

	t.resumedClarification = s.State == entities.StateAwaitingClarification
	if t.input == "" {
		if t.resumedClarification {
			return nodeClarifyResponse, nil
		}
		return nodeAskQuestion, nil
	}

	messageType := entities.MessageTypeAnswer
	t.answerText = t.input
	if t.resumedClarification {
		messageType = entities.MessageTypeClarificationReply
		if previous := lastAnswer(s, t.questionCode); previous != "" {
			t.answerText = previous + "\n" + t.input
		}
	}

	s.State = entities.StateProcessing
	o.hear(t, messageType, t.input, t.questionCode)

	outcome := o.interpreter.Interpret(ctx, t.question, t.answerText)
	interp := outcome.Interpretation
	t.interpretation = &interp

	if o.needsClarification(interp) && !t.resumedClarification {
		return nodeClarifyResponse, nil
	}
	return nodeAdvanceQuestion, nil
}

func (o *ConversationOrchestrator) clarifyResponse(ctx context.Context, t *turn) (node, error) {
	s := t.session
	mc := providers.MessageContext{
		Phase:          s.Phase,
		Question:       t.question,
		QuestionNumber: s.CurrentQuestionIndex + 1,
		TotalQuestions: o.catalog.TotalQuestions(),
	}
	if t.interpretation != nil {
		mc.ClarificationQuestion = t.interpretation.ClarificationQuestion
	}

	text, err := o.render(ctx, providers.MessageKindClarification, mc)
	if err != nil {
		return nodeWait, err
	}
	o.say(t, entities.MessageTypeClarification, text, t.questionCode)
	s.State = entities.StateAwaitingClarification
	observability.RecordClarification(ctx, o.metrics, t.questionCode)
	return nodeWait, nil
}

func (o *ConversationOrchestrator) advanceQuestion(_ context.Context, t *turn) (node, error) {
	s := t.session
	if t.question == nil || t.interpretation == nil {
		return nodeWait, apperrors.NewTransitionError("advance without an interpreted answer")
	}
	if _, exists := s.ResponseFor(t.questionCode); exists {
		return nodeWait, apperrors.NewTransitionError(fmt.Sprintf("question %s already answered", t.questionCode))
	}
	if len(s.Responses) != s.CurrentQuestionIndex {
		return nodeWait, apperrors.NewTransitionError(fmt.Sprintf("%d responses recorded at index %d", len(s.Responses), s.CurrentQuestionIndex))
	}

	interp := t.interpretation
	response := entities.AssessmentResponse{
		ID:                 uuid.NewString(),
		QuestionCode:       t.questionCode,
		AssessmentType:     t.question.AssessmentType,
		UserResponseText:   t.answerText,
		InterpretedScore:   interp.InterpretedScore,
		Confidence:         interp.Confidence,
		Reasoning:          interp.Reasoning,
		NeedsClarification: interp.NeedsClarification,
		Clarified:          t.resumedClarification,
		Timestamp:          o.now(),
	}
	s.Responses = append(s.Responses, response)
	s.CurrentQuestionIndex++

	event := entities.NewAssessmentEvent(s.ID, entities.EventTypeResponseRecorded, t.questionCode, response.Timestamp)
	recorded := response
	event.Response = &recorded
	t.events = append(t.events, event)
	o.progressChanged(t)

	_, end, _ := o.catalog.PhaseBounds(s.Phase)
	switch {
	case s.CurrentQuestionIndex == end:
		return nodeTransitionPhase, nil
	case s.CurrentQuestionIndex > end:
		return nodeWait, apperrors.NewTransitionError(fmt.Sprintf("index %d past end of phase %s", s.CurrentQuestionIndex, s.Phase))
	}
	return nodeAskQuestion, nil
}

func (o *ConversationOrchestrator) transitionPhase(ctx context.Context, t *turn) (node, error) {
	s := t.session
	next, ok := s.Phase.Next()
	if !ok || !s.Phase.IsQuestionPhase() {
		return nodeWait, o.invalidState(nodeTransitionPhase, s)
	}
	if next == entities.PhaseComplete {
		return nodeCompleteAssessment, nil
	}

	text, err := o.render(ctx, providers.MessageKindTransition, providers.MessageContext{
		Phase:          s.Phase,
		NextPhase:      next,
		TotalQuestions: o.catalog.TotalQuestions(),
	})
	if err != nil {
		return nodeWait, err
	}
	o.say(t, entities.MessageTypeTransition, text, "")

	start, _, _ := o.catalog.PhaseBounds(next)
	if s.CurrentQuestionIndex != start {
		return nodeWait, apperrors.NewTransitionError(fmt.Sprintf("entering %s at index %d, expected %d", next, s.CurrentQuestionIndex, start))
	}
	s.Phase = next
	o.progressChanged(t)
	return nodeAskQuestion, nil
}

func (o *ConversationOrchestrator) completeAssessment(ctx context.Context, t *turn) (node, error) {
	s := t.session
	if s.Phase != entities.PhaseADL || s.CurrentQuestionIndex != o.catalog.TotalQuestions() {
		return nodeWait, o.invalidState(nodeCompleteAssessment, s)
	}

	scores := o.aggregator.Aggregate(s.Responses)
	text, err := o.render(ctx, providers.MessageKindCompletion, providers.MessageContext{
		Phase:          s.Phase,
		NextPhase:      entities.PhaseComplete,
		TotalQuestions: o.catalog.TotalQuestions(),
		Scores:         scores,
	})
	if err != nil {
		return nodeWait, err
	}
	o.say(t, entities.MessageTypeCompletion, text, "")

	completedAt := o.now()
	s.Phase = entities.PhaseComplete
	s.State = entities.StateCompleted
	s.CompletedAt = &completedAt
	t.scores = scores

	event := entities.NewAssessmentEvent(s.ID, entities.EventTypeSessionCompleted, t.questionCode, completedAt)
	event.Scores = scores
	t.events = append(t.events, event)
	o.progressChanged(t)

	observability.RecordCompletion(ctx, o.metrics, string(scores.IADL.Interpretation), string(scores.ADL.Interpretation))
	return nodeWait, nil
}

// handleError applies the failure to the untouched session: only the error
// counter and an apologetic message are added.
func (o *ConversationOrchestrator) handleError(ctx context.Context, original *entities.Session, t *turn, cause error) *TurnResult {
	s := original.Clone()
	s.ErrorCount++
	s.LastError = cause.Error()
	s.Touch(o.now())

	failed := &turn{
		session:      s,
		startedAt:    t.startedAt,
		question:     t.question,
		questionCode: t.questionCode,
	}

	text, err := o.safeRender(ctx, providers.MessageKindError, providers.MessageContext{
		Phase:          s.Phase,
		Question:       t.question,
		TotalQuestions: o.catalog.TotalQuestions(),
	})
	if err != nil || strings.TrimSpace(text) == "" {
		text = fallbackErrorMessage(t.question)
	}
	o.say(failed, entities.MessageTypeError, text, t.questionCode)
	o.progressChanged(failed)

	event := o.logger.Error()
	if apperrors.IsType(cause, apperrors.ErrorTypeTransition) {
		event = event.Bool("transition_error", true)
	}
	event.Err(cause).
		Str("session_id", s.ID).
		Str("phase", string(s.Phase)).
		Str("question_code", t.questionCode).
		Int("error_count", s.ErrorCount).
		Msg("conversation turn failed")

	return o.result(failed, true)
}

func (o *ConversationOrchestrator) result(t *turn, failed bool) *TurnResult {
	s := t.session
	r := &TurnResult{
		Session:            s,
		Message:            strings.Join(t.assistant, "\n\n"),
		Phase:              s.Phase,
		State:              s.State,
		Progress:           o.Progress(s),
		ResponsesCompleted: len(s.Responses),
		TotalQuestions:     o.catalog.TotalQuestions(),
		ShouldContinue:     !s.IsComplete() && s.ErrorCount < o.cfg.MaxErrors,
		NeedsClarification: s.State == entities.StateAwaitingClarification,
		Interpretation:     t.interpretation,
		Scores:             t.scores,
		Events:             t.events,
		Failed:             failed,
	}
	if failed {
		r.State = entities.StateError
	}
	return r
}

func (o *ConversationOrchestrator) needsClarification(interp entities.ScoreInterpretation) bool {
	if interp.NeedsClarification {
		return true
	}
	return o.cfg.ClarificationThreshold > 0 && interp.Confidence < o.cfg.ClarificationThreshold
}

func (o *ConversationOrchestrator) render(ctx context.Context, kind providers.MessageKind, mc providers.MessageContext) (string, error) {
	text, err := o.renderer.RenderMessage(ctx, kind, mc)
	if err != nil {
		return "", fmt.Errorf("failed to render %s message: %w", kind, err)
	}
	return text, nil
}

// safeRender is render for use outside execute, where panics are not recovered
func (o *ConversationOrchestrator) safeRender(ctx context.Context, kind providers.MessageKind, mc providers.MessageContext) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("renderer panicked: %v", r)
		}
	}()
	return o.render(ctx, kind, mc)
}

func (o *ConversationOrchestrator) say(t *turn, messageType entities.MessageType, content, questionCode string) {
	t.assistant = append(t.assistant, content)
	o.appendMessage(t, entities.SpeakerAssistant, messageType, content, questionCode)
}

func (o *ConversationOrchestrator) hear(t *turn, messageType entities.MessageType, content, questionCode string) {
	o.appendMessage(t, entities.SpeakerUser, messageType, content, questionCode)
}

func (o *ConversationOrchestrator) appendMessage(t *turn, speaker entities.Speaker, messageType entities.MessageType, content, questionCode string) {
	s := t.session
	msg := entities.ConversationMessage{
		ID:           uuid.NewString(),
		Timestamp:    o.now(),
		Speaker:      speaker,
		Content:      content,
		MessageType:  messageType,
		QuestionCode: questionCode,
		Phase:        s.Phase,
	}
	s.ConversationHistory = append(s.ConversationHistory, msg)

	event := entities.NewAssessmentEvent(s.ID, entities.EventTypeMessageAppended, t.questionCode, msg.Timestamp)
	event.Message = &msg
	t.events = append(t.events, event)
}

func (o *ConversationOrchestrator) progressChanged(t *turn) {
	s := t.session
	event := entities.NewAssessmentEvent(s.ID, entities.EventTypeProgressChanged, t.questionCode, o.now())
	event.Progress = &entities.ProgressSnapshot{
		Phase:                s.Phase,
		State:                s.State,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
		ResponsesCompleted:   len(s.Responses),
		TotalQuestions:       o.catalog.TotalQuestions(),
		ErrorCount:           s.ErrorCount,
	}
	t.events = append(t.events, event)
}

func (o *ConversationOrchestrator) invalidState(n node, s *entities.Session) error {
	return apperrors.NewTransitionError(fmt.Sprintf("node %s not valid in phase %s, state %s, index %d", n, s.Phase, s.State, s.CurrentQuestionIndex))
}

// lastAnswer returns the most recent answer given to a question, if any
func lastAnswer(s *entities.Session, questionCode string) string {
	for i := len(s.ConversationHistory) - 1; i >= 0; i-- {
		m := s.ConversationHistory[i]
		if m.Speaker == entities.SpeakerUser && m.QuestionCode == questionCode && m.MessageType == entities.MessageTypeAnswer {
			return m.Content
		}
	}
	return ""
}

func fallbackErrorMessage(q *entities.Question) string {
	if q != nil {
		return fmt.Sprintf("I'm sorry, something went wrong on my side. Could you tell me again about %s?", q.TopicName())
	}
	return "I'm sorry, something went wrong on my side. Could you please repeat that?"
}
