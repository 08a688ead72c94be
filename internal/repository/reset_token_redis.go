package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetTokenKeyPrefix = "password_reset:token:"
	resetUserKeyPrefix  = "password_reset:user:"
)

// RedisResetTokenRepository stores token digests in Redis with a TTL.
// GETDEL makes redemption single-use.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewRedisResetTokenRepository creates a ResetTokenRepository backed by Redis
func NewRedisResetTokenRepository(client *redis.Client) ResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

// Issue stores the digest and drops the user's previous token
func (r *RedisResetTokenRepository) Issue(ctx context.Context, userID uint64, tokenHash string, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return fmt.Errorf("reset token expiry %s is in the past", expiry)
	}

	userKey := resetUserKeyPrefix + strconv.FormatUint(userID, 10)
	previous, err := r.client.Get(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read previous reset token: %w", err)
	}

	value := fmt.Sprintf("%d:%d", userID, expiry.UnixNano())
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(ctx, resetTokenKeyPrefix+previous)
		}
		pipe.Set(ctx, resetTokenKeyPrefix+tokenHash, value, ttl)
		pipe.Set(ctx, userKey, tokenHash, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

// Consume atomically removes the token and checks its expiry
func (r *RedisResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (uint64, error) {
	value, err := r.client.GetDel(ctx, resetTokenKeyPrefix+tokenHash).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrTokenNotFound
		}
		return 0, fmt.Errorf("failed to consume reset token: %w", err)
	}

	userPart, expiryPart, ok := strings.Cut(value, ":")
	if !ok {
		return 0, ErrTokenNotFound
	}
	userID, err := strconv.ParseUint(userPart, 10, 64)
	if err != nil {
		return 0, ErrTokenNotFound
	}
	expiryNanos, err := strconv.ParseInt(expiryPart, 10, 64)
	if err != nil {
		return 0, ErrTokenNotFound
	}

	userKey := resetUserKeyPrefix + userPart
	if current, err := r.client.Get(ctx, userKey).Result(); err == nil && current == tokenHash {
		r.client.Del(ctx, userKey)
	}

	if !now.Before(time.Unix(0, expiryNanos)) {
		return 0, ErrTokenNotFound
	}
	return userID, nil
}
