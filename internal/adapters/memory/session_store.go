package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/functional-assessment/backend/pkg/errors"
)

type sessionRecord struct {
	progress     entities.Session
	messages     []entities.ConversationMessage
	responses    []entities.AssessmentResponse
	scores       *entities.AssessmentScores
	calculatedAt time.Time
}

// SessionStore keeps sessions in process memory. It implements the session,
// message and score repositories over one map so a single value can be
// handed to every consumer. Sessions are lost on restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
}

// NewSessionStore creates an empty store
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionRecord)}
}

var (
	_ repositories.SessionRepository = (*SessionStore)(nil)
	_ repositories.MessageRepository = (*SessionStore)(nil)
	_ repositories.ScoreRepository   = (*SessionStore)(nil)
)

// Create stores a new session
func (s *SessionStore) Create(_ context.Context, session *entities.Session) error {
	if session == nil || session.ID == "" {
		return apperrors.NewValidationError("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return apperrors.NewConflictError("session " + session.ID + " already exists")
	}

	rec := &sessionRecord{progress: progressOf(session)}
	rec.messages = append(rec.messages, session.ConversationHistory...)
	rec.responses = append(rec.responses, session.Responses...)
	s.sessions[session.ID] = rec
	return nil
}

// GetByID loads a session with its responses and transcript
func (s *SessionStore) GetByID(_ context.Context, id string) (*entities.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(id)
	}
	return rec.assemble(), nil
}

// CommitTurn applies a turn to a copy of the stored record and swaps it in
// only when every event applied. Responses and transcript are only ever
// extended; a stale snapshot cannot erase them.
func (s *SessionStore) CommitTurn(_ context.Context, session *entities.Session, events []*entities.AssessmentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[session.ID]
	if !ok {
		return apperrors.NewSessionNotFoundError(session.ID)
	}

	next := &sessionRecord{
		progress:     progressOf(session),
		messages:     append([]entities.ConversationMessage{}, rec.messages...),
		responses:    append([]entities.AssessmentResponse{}, rec.responses...),
		scores:       rec.scores,
		calculatedAt: rec.calculatedAt,
	}
	for _, event := range events {
		if err := next.apply(event); err != nil {
			return err
		}
	}
	s.sessions[session.ID] = next
	return nil
}

// Delete removes a session and everything recorded for it
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return apperrors.NewSessionNotFoundError(id)
	}
	delete(s.sessions, id)
	return nil
}

// List returns sessions ordered by last activity, most recent first
func (s *SessionStore) List(_ context.Context, filter repositories.SessionFilter) ([]*entities.Session, error) {
	s.mu.RLock()
	matched := make([]*entities.Session, 0, len(s.sessions))
	for _, rec := range s.sessions {
		if filter.PatientID != "" && rec.progress.PatientID != filter.PatientID {
			continue
		}
		if filter.ActiveOnly && rec.progress.IsComplete() {
			continue
		}
		matched = append(matched, rec.assemble())
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastActivity.Equal(matched[j].LastActivity) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].LastActivity.After(matched[j].LastActivity)
	})

	if filter.Offset >= len(matched) {
		return []*entities.Session{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// ListMessages returns the transcript in append order
func (s *SessionStore) ListMessages(_ context.Context, sessionID string) ([]entities.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	return append([]entities.ConversationMessage{}, rec.messages...), nil
}

// GetScores returns stored totals, or NOT_FOUND before completion
func (s *SessionStore) GetScores(_ context.Context, sessionID string) (*entities.AssessmentScores, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	if rec.scores == nil {
		return nil, apperrors.NewNotFoundError("scores for session " + sessionID + " not found")
	}
	copied := *rec.scores
	return &copied, nil
}

func progressOf(session *entities.Session) entities.Session {
	p := *session.Clone()
	p.Responses = nil
	p.ConversationHistory = nil
	return p
}

func (r *sessionRecord) assemble() *entities.Session {
	session := r.progress.Clone()
	session.Responses = append(make([]entities.AssessmentResponse, 0, len(r.responses)), r.responses...)
	session.ConversationHistory = append(make([]entities.ConversationMessage, 0, len(r.messages)), r.messages...)
	return session
}

func (r *sessionRecord) apply(event *entities.AssessmentEvent) error {
	switch event.EventType {
	case entities.EventTypeMessageAppended:
		if event.Message == nil {
			return apperrors.NewValidationError("message event without a message")
		}
		r.messages = append(r.messages, *event.Message)
	case entities.EventTypeResponseRecorded:
		if event.Response == nil {
			return apperrors.NewValidationError("response event without a response")
		}
		// A second answer for the same question code is ignored.
		for _, existing := range r.responses {
			if existing.QuestionCode == event.Response.QuestionCode {
				return nil
			}
		}
		r.responses = append(r.responses, *event.Response)
	case entities.EventTypeSessionCompleted:
		if event.Scores == nil {
			return apperrors.NewValidationError("completion event without scores")
		}
		copied := *event.Scores
		r.scores = &copied
		r.calculatedAt = event.Timestamp
	}
	return nil
}
