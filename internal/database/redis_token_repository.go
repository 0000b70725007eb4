package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/maxwellt7/ai-hypnosis-generator/internal/interfaces"
	"github.com/maxwellt7/ai-hypnosis-generator/internal/models"
)

var _ interfaces.TokenRepository = (*redisTokenRepository)(nil)

type redisTokenRepository struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisTokenRepository keeps issued token ids in redis:
// access_uuid:<id> and refresh_uuid:<id> map to the user id and expire with the token.
func NewRedisTokenRepository(client redis.UniversalClient, logger *zap.Logger) interfaces.TokenRepository {
	return &redisTokenRepository{client: client, logger: logger.Named("RedisTokenRepo")}
}

func accessKey(id string) string  { return "access_uuid:" + id }
func refreshKey(id string) string { return "refresh_uuid:" + id }

func (r *redisTokenRepository) SetToken(ctx context.Context, userID uuid.UUID, td *models.TokenDetails) error {
	now := time.Now()
	accessTTL := time.Unix(td.AtExpires, 0).Sub(now)
	refreshTTL := time.Unix(td.RtExpires, 0).Sub(now)
	if accessTTL <= 0 || refreshTTL <= 0 {
		return fmt.Errorf("refusing to store already expired tokens for user %s", userID)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, accessKey(td.AccessUUID), userID.String(), accessTTL)
	pipe.Set(ctx, refreshKey(td.RefreshUUID), userID.String(), refreshTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to store tokens", zap.String("userID", userID.String()), zap.Error(err))
		return fmt.Errorf("failed to store tokens: %w", err)
	}
	return nil
}

func (r *redisTokenRepository) GetUserIDByAccessUUID(ctx context.Context, accessUUID string) (uuid.UUID, error) {
	return r.lookup(ctx, accessKey(accessUUID))
}

func (r *redisTokenRepository) GetUserIDByRefreshUUID(ctx context.Context, refreshUUID string) (uuid.UUID, error) {
	return r.lookup(ctx, refreshKey(refreshUUID))
}

func (r *redisTokenRepository) lookup(ctx context.Context, key string) (uuid.UUID, error) {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, models.ErrTokenNotFound
		}
		r.logger.Error("Failed to read token", zap.String("key", key), zap.Error(err))
		return uuid.Nil, fmt.Errorf("failed to read token: %w", err)
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		r.logger.Error("Corrupted user id stored for token", zap.String("key", key), zap.String("value", raw))
		return uuid.Nil, fmt.Errorf("corrupted token data for %s: %w", key, err)
	}
	return userID, nil
}

func (r *redisTokenRepository) DeleteTokens(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) (int64, error) {
	keys := make([]string, 0, 2)
	if accessUUID != "" {
		keys = append(keys, accessKey(accessUUID))
	}
	if refreshUUID != "" {
		keys = append(keys, refreshKey(refreshUUID))
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := r.client.Del(ctx, keys...).Result()
	if err != nil {
		r.logger.Error("Failed to delete tokens", zap.String("userID", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to delete tokens: %w", err)
	}
	return deleted, nil
}
