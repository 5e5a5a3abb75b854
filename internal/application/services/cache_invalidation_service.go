package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
)

// CacheInvalidationService drops cached session views when session events arrive
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus, logger zerolog.Logger) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for events and invalidating cache
func (s *CacheInvalidationService) Start() error {
	eventChan, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelAssessmentEvents)
	if err != nil {
		return fmt.Errorf("failed to subscribe to assessment events: %w", err)
	}

	s.wg.Add(1)
	go s.processEvents(eventChan)
	s.logger.Info().Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	s.logger.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(eventChan <-chan *entities.AssessmentEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event == nil || !invalidates(event.EventType) {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.InvalidateSession(ctx, event.SessionID); err != nil {
				s.logger.Warn().Err(err).Str("session_id", event.SessionID).Msg("failed to invalidate session cache")
			}
			cancel()
		}
	}
}

// Transcript appends arrive with every turn alongside a progress event, so
// only the progress-bearing events trigger invalidation.
func invalidates(eventType entities.AssessmentEventType) bool {
	switch eventType {
	case entities.EventTypeProgressChanged, entities.EventTypeSessionCompleted, entities.EventTypeSessionDeleted:
		return true
	}
	return false
}

// InvalidateSession drops the cached snapshot and HTTP responses of a session
func (s *CacheInvalidationService) InvalidateSession(ctx context.Context, sessionID string) error {
	if err := s.cache.Delete(ctx, providers.SessionCacheKey(sessionID)); err != nil {
		return fmt.Errorf("failed to invalidate session snapshot: %w", err)
	}

	if deleter, ok := s.cache.(providers.PatternDeleter); ok {
		if err := deleter.DeletePattern(ctx, providers.SessionHTTPCachePattern(sessionID)); err != nil {
			return fmt.Errorf("failed to invalidate session responses: %w", err)
		}
	}

	s.logger.Debug().Str("session_id", sessionID).Msg("invalidated session cache")
	return nil
}
