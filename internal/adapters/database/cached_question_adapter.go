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

const (
	questionCacheKeyspace = "question"
	questionCachePrefix   = "assessment:cache:questions:"
)

// CachedQuestionAdapter wraps a QuestionRepository with a read-through cache.
// The catalog only changes through the seeder, which calls Invalidate.
type CachedQuestionAdapter struct {
	adapter repositories.QuestionRepository
	cache   providers.CacheProvider
	ttl     time.Duration
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewCachedQuestionAdapter creates a new cached question adapter
func NewCachedQuestionAdapter(adapter repositories.QuestionRepository, cache providers.CacheProvider, ttl time.Duration, logger zerolog.Logger) *CachedQuestionAdapter {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedQuestionAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

var _ repositories.QuestionRepository = (*CachedQuestionAdapter)(nil)

// SetMetrics enables cache hit/miss counters
func (a *CachedQuestionAdapter) SetMetrics(metrics *observability.Metrics) {
	a.metrics = metrics
}

// ListByType returns the questions of one scale, cached per scale
func (a *CachedQuestionAdapter) ListByType(ctx context.Context, assessmentType entities.AssessmentType) ([]*entities.Question, error) {
	key := questionTypeKey(assessmentType)

	var questions []*entities.Question
	if a.lookup(ctx, key, &questions) {
		return questions, nil
	}

	questions, err := a.adapter.ListByType(ctx, assessmentType)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		a.store(ctx, key, questions)
	}
	return questions, nil
}

// GetByCode retrieves a question by code, cached per code
func (a *CachedQuestionAdapter) GetByCode(ctx context.Context, code string) (*entities.Question, error) {
	key := questionCodeKey(code)

	var question entities.Question
	if a.lookup(ctx, key, &question) {
		return &question, nil
	}

	found, err := a.adapter.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	a.store(ctx, key, found)
	return found, nil
}

// Invalidate drops every cached scale listing and the given question codes
func (a *CachedQuestionAdapter) Invalidate(ctx context.Context, codes ...string) error {
	keys := []string{questionTypeKey(entities.AssessmentTypeIADL), questionTypeKey(entities.AssessmentTypeADL)}
	for _, code := range codes {
		keys = append(keys, questionCodeKey(code))
	}
	return a.cache.Delete(ctx, keys...)
}

func (a *CachedQuestionAdapter) lookup(ctx context.Context, key string, dest interface{}) bool {
	cached, err := a.cache.Get(ctx, key)
	if err == nil {
		if err := json.Unmarshal(cached, dest); err == nil {
			observability.RecordCacheHit(ctx, a.metrics, questionCacheKeyspace)
			return true
		}
		a.logger.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached questions")
	} else if !errors.Is(err, providers.ErrCacheMiss) {
		a.logger.Warn().Err(err).Str("key", key).Msg("question cache read failed")
	}
	observability.RecordCacheMiss(ctx, a.metrics, questionCacheKeyspace)
	return false
}

func (a *CachedQuestionAdapter) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
		a.logger.Warn().Err(err).Str("key", key).Msg("failed to cache questions")
	}
}

func questionTypeKey(assessmentType entities.AssessmentType) string {
	return questionCachePrefix + "type:" + string(assessmentType)
}

func questionCodeKey(code string) string {
	return questionCachePrefix + "code:" + code
}
