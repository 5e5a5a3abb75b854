package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/zatekoja/functional-assessment/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/functional-assessment/backend/internal/infrastructure/clients/redis"
)

const lockKeyPrefix = "assessment:lock:"

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes turns across API replicas. Locks expire after ttl
// so a crashed replica cannot wedge a session.
type RedisLocker struct {
	client *redisclient.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisLocker creates a Redis-backed session locker
func NewRedisLocker(client *redisclient.Client, ttl time.Duration, logger zerolog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLocker{client: client, ttl: ttl, logger: logger}
}

var _ providers.SessionLocker = (*RedisLocker)(nil)

// Lock claims the session or returns ErrSessionBusy
func (l *RedisLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.NewString()

	ok, err := l.client.Client().SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock for session %s: %w", sessionID, err)
	}
	if !ok {
		return nil, providers.ErrSessionBusy
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client.Client(), []string{key}, token).Err(); err != nil {
			l.logger.Warn().Err(err).Str("session_id", sessionID).Msg("failed to release session lock")
		}
	}, nil
}
