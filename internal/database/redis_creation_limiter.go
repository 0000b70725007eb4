package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

var _ interfaces.CreationLimiter = (*redisCreationLimiter)(nil)

// reserveScript trims the window, then adds the member only if the window has room.
// KEYS[1] window key; ARGV: now(ms), window(ms), limit, member.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, tonumber(oldest[2]) + window}
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

type redisCreationLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewRedisCreationLimiter allows `limit` reservations per owner in any rolling `window`.
func NewRedisCreationLimiter(client redis.UniversalClient, limit int, window time.Duration, logger *zap.Logger) interfaces.CreationLimiter {
	return &redisCreationLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: "journey_create:",
		now:    time.Now,
		logger: logger.Named("CreationLimiter"),
	}
}

func (l *redisCreationLimiter) key(ownerID uuid.UUID) string {
	return l.prefix + ownerID.String()
}

func (l *redisCreationLimiter) Reserve(ctx context.Context, ownerID uuid.UUID) (string, error) {
	member := uuid.NewString()
	now := l.now().UnixMilli()
	res, err := reserveScript.Run(ctx, l.client, []string{l.key(ownerID)},
		now, l.window.Milliseconds(), l.limit, member).Int64Slice()
	if err != nil {
		l.logger.Error("Failed to reserve journey creation slot", zap.String("userID", ownerID.String()), zap.Error(err))
		return "", fmt.Errorf("failed to check journey creation limit: %w", err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("unexpected limiter reply %v", res)
	}
	if res[0] == 0 {
		retryAfter := time.Duration(res[1]-now) * time.Millisecond
		l.logger.Info("Journey creation limit reached",
			zap.String("userID", ownerID.String()), zap.Int("limit", l.limit), zap.Duration("retryAfter", retryAfter))
		return "", fmt.Errorf("%w: at most %d journeys per %s, retry in %s",
			models.ErrRateLimited, l.limit, l.window, retryAfter.Round(time.Second))
	}
	return member, nil
}

func (l *redisCreationLimiter) Release(ctx context.Context, ownerID uuid.UUID, reservation string) error {
	if reservation == "" {
		return nil
	}
	if err := l.client.ZRem(ctx, l.key(ownerID), reservation).Err(); err != nil {
		l.logger.Warn("Failed to release journey creation slot",
			zap.String("userID", ownerID.String()), zap.String("reservation", reservation), zap.Error(err))
		return fmt.Errorf("failed to release creation slot: %w", err)
	}
	return nil
}

func (l *redisCreationLimiter) withClock(now func() time.Time) *redisCreationLimiter {
	l.now = now
	return l
}
