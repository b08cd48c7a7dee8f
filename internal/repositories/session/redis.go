package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/svetlov/captchabot/internal/common/clock"
	"github.com/svetlov/captchabot/internal/models"
)

const (
	// Key prefixes for Redis
	authKeyPrefix      = "captcha:auth:"
	challengeKeyPrefix = "captcha:challenge:"
)

// RedisConfig holds configuration for the Redis session repository
type RedisConfig struct {
	// Redis client
	RedisClient *redis.Client

	// ChallengeGrace past the deadline before the challenge key expires
	ChallengeGrace time.Duration

	// Clock, defaults to the system clock
	Clock clock.Clock
}

// redisRepository implements the Repository interface using Redis.
// The auth flag and the challenge live under separate keys: the flag
// never expires, the challenge key carries a TTL of deadline+grace so
// Redis itself discards abandoned challenges.
type redisRepository struct {
	client *redis.Client
	clock  clock.Clock
	grace  time.Duration
}

// NewRedis creates a new Redis-backed session repository
func NewRedis(cfg *RedisConfig) (*redisRepository, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	grace := cfg.ChallengeGrace
	if grace <= 0 {
		grace = DefaultChallengeGrace
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &redisRepository{
		client: cfg.RedisClient,
		clock:  clk,
		grace:  grace,
	}, nil
}

// GetSession retrieves a session from Redis, returning an implicit
// empty session for users that have never been seen
func (r *redisRepository) GetSession(ctx context.Context, input *GetSessionInput) (*models.Session, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}

	pipe := r.client.Pipeline()
	authCmd := pipe.Get(ctx, fmt.Sprintf("%s%d", authKeyPrefix, input.UserID))
	challengeCmd := pipe.Get(ctx, fmt.Sprintf("%s%d", challengeKeyPrefix, input.UserID))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	sess := &models.Session{UserID: input.UserID}

	if _, err := authCmd.Result(); err == nil {
		sess.Passed = true
	} else if err != redis.Nil {
		return nil, fmt.Errorf("failed to get auth flag: %w", err)
	}

	challengeJSON, err := challengeCmd.Result()
	if err == redis.Nil {
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}

	var challenge models.Challenge
	if err := json.Unmarshal([]byte(challengeJSON), &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	sess.Challenge = &challenge

	return sess, nil
}

// SaveSession persists a session to Redis
func (r *redisRepository) SaveSession(ctx context.Context, input *SaveSessionInput) error {
	if input == nil || input.Session == nil {
		return errors.New("input and session cannot be nil")
	}

	sess := input.Session
	authKey := fmt.Sprintf("%s%d", authKeyPrefix, sess.UserID)
	challengeKey := fmt.Sprintf("%s%d", challengeKeyPrefix, sess.UserID)

	pipe := r.client.Pipeline()

	if sess.Passed {
		pipe.Set(ctx, authKey, "1", 0) // authorization never expires
	} else {
		pipe.Del(ctx, authKey)
	}

	if sess.Challenge != nil {
		challengeJSON, err := json.Marshal(sess.Challenge)
		if err != nil {
			return fmt.Errorf("failed to marshal challenge: %w", err)
		}

		ttl := sess.Challenge.Deadline.Add(r.grace).Sub(r.clock.Now())
		if ttl > 0 {
			pipe.Set(ctx, challengeKey, challengeJSON, ttl)
		} else {
			pipe.Del(ctx, challengeKey)
		}
	} else {
		pipe.Del(ctx, challengeKey)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Close closes the underlying Redis client
func (r *redisRepository) Close() error {
	return r.client.Close()
}
