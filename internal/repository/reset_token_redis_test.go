package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
	})
	return client, mr
}

func TestRedisResetTokenRepository_ConsumeOnce(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisResetTokenRepository(client)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Issue(ctx, 42, "digest", now.Add(time.Hour)))
	require.True(t, mr.Exists(resetTokenKeyPrefix+"digest"))

	id, err := repo.Consume(ctx, "digest", now)
	require.NoError(t, err)
	require.Equal(t, uint64(42), id)
	require.False(t, mr.Exists(resetTokenKeyPrefix+"digest"))
	require.False(t, mr.Exists(resetUserKeyPrefix+"42"))

	_, err = repo.Consume(ctx, "digest", now)
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedisResetTokenRepository_ReissueInvalidatesPrevious(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedisResetTokenRepository(client)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Issue(ctx, 7, "first", now.Add(time.Hour)))
	require.NoError(t, repo.Issue(ctx, 7, "second", now.Add(time.Hour)))

	_, err := repo.Consume(ctx, "first", now)
	require.ErrorIs(t, err, ErrTokenNotFound)

	id, err := repo.Consume(ctx, "second", now)
	require.NoError(t, err)
	require.Equal(t, uint64(7), id)
}

func TestRedisResetTokenRepository_Expiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewRedisResetTokenRepository(client)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(time.Hour)
	require.NoError(t, repo.Issue(ctx, 9, "late", expiry))
	_, err := repo.Consume(ctx, "late", expiry)
	require.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, repo.Issue(ctx, 9, "gone", time.Now().Add(time.Hour)))
	mr.FastForward(2 * time.Hour)
	_, err = repo.Consume(ctx, "gone", time.Now())
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestRedisResetTokenRepository_IssueInPast(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewRedisResetTokenRepository(client)

	err := repo.Issue(context.Background(), 1, "digest", time.Now().Add(-time.Minute))
	require.Error(t, err)
}
