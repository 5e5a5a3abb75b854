package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/entities"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	"github.com/zatekoja/functional-assessment/backend/internal/domain/repositories"
	"github.com/zatekoja/functional-assessment/backend/internal/infrastructure/observability"
)

const sessionCacheKeyspace = "session"

// CachedSessionAdapter wraps a SessionRepository with a read-through
// snapshot cache. Writes invalidate before returning, so a reader never
// sees a snapshot older than the last committed turn.
type CachedSessionAdapter struct {
	adapter repositories.SessionRepository
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewCachedSessionAdapter creates a new cached session adapter
func NewCachedSessionAdapter(adapter repositories.SessionRepository, cache providers.CacheProvider, ttl time.Duration, logger zerolog.Logger) *CachedSessionAdapter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedSessionAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

var _ repositories.SessionRepository = (*CachedSessionAdapter)(nil)

// SetMetrics enables cache hit/miss counters
func (a *CachedSessionAdapter) SetMetrics(metrics *observability.Metrics) {
	a.metrics = metrics
}

// Create stores a new session
func (a *CachedSessionAdapter) Create(ctx context.Context, session *entities.Session) error {
	return a.adapter.Create(ctx, session)
}

// GetByID retrieves a session with caching
func (a *CachedSessionAdapter) GetByID(ctx context.Context, id string) (*entities.Session, error) {
	cacheKey := providers.SessionCacheKey(id)

	cached, err := a.cache.Get(ctx, cacheKey)
	if err == nil {
		var session entities.Session
		if err := json.Unmarshal(cached, &session); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, sessionCacheKeyspace)
			return &session, nil
		}
		a.logger.Warn().Err(err).Str("session_id", id).Msg("failed to unmarshal cached session")
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		a.logger.Warn().Err(err).Str("session_id", id).Msg("session cache read failed")
	}
	observability.RecordCacheMiss(ctx, a.metrics, sessionCacheKeyspace)

	session, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(session); err == nil {
		if err := a.cache.Set(ctx, cacheKey, data, a.ttl); err != nil {
			a.logger.Warn().Err(err).Str("session_id", id).Msg("failed to cache session")
		}
	}
	return session, nil
}

// CommitTurn stores a turn and drops the cached snapshot
func (a *CachedSessionAdapter) CommitTurn(ctx context.Context, session *entities.Session, events []*entities.AssessmentEvent) error {
	if err := a.adapter.CommitTurn(ctx, session, events); err != nil {
		return err
	}
	a.invalidate(ctx, session.ID)
	return nil
}

// Delete removes a session and drops the cached snapshot
func (a *CachedSessionAdapter) Delete(ctx context.Context, id string) error {
	if err := a.adapter.Delete(ctx, id); err != nil {
		return err
	}
	a.invalidate(ctx, id)
	return nil
}

// List is not cached
func (a *CachedSessionAdapter) List(ctx context.Context, filter repositories.SessionFilter) ([]*entities.Session, error) {
	return a.adapter.List(ctx, filter)
}

func (a *CachedSessionAdapter) invalidate(ctx context.Context, id string) {
	if err := a.cache.Delete(ctx, providers.SessionCacheKey(id)); err != nil {
		a.logger.Warn().Err(err).Str("session_id", id).Msg("failed to invalidate cached session")
	}
}
