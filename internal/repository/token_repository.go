package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenRepository 维护已注销 token 的黑名单。
type TokenRepository interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type redisTokenRepository struct {
	redisClient *redis.Client
}

// NewTokenRepository 创建一个新的 TokenRepository 实例。
func NewTokenRepository(redisClient *redis.Client) TokenRepository {
	return &redisTokenRepository{redisClient: redisClient}
}

func blacklistKey(token string) string {
	return "blacklist:" + token
}

// Revoke 把 token 加入黑名单，ttl 取 token 的剩余有效期。
func (r *redisTokenRepository) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redisClient.Set(ctx, blacklistKey(token), "true", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *redisTokenRepository) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.redisClient.Exists(ctx, blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
