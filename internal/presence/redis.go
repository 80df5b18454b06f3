package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OnlineUsersKey is the set holding the ids of online users.
const OnlineUsersKey = "online_users"

// UserKey returns the hash key holding a user's presence fields.
func UserKey(userID string) string {
	return "user:" + userID
}

// RedisTracker writes presence to Redis: the online_users set plus a
// user:<id> hash with username, status and last_seen.
type RedisTracker struct {
	rdb     redis.UniversalClient
	timeout time.Duration
	now     func() time.Time
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
}

// NewRedisTracker connects to Redis and verifies the connection.
func NewRedisTracker(ctx context.Context, opts RedisOptions) (*RedisTracker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewRedisTrackerWithClient(rdb, opts.Timeout), nil
}

// NewRedisTrackerWithClient wraps an existing client.
func NewRedisTrackerWithClient(rdb redis.UniversalClient, timeout time.Duration) *RedisTracker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisTracker{rdb: rdb, timeout: timeout, now: time.Now}
}

// SetOnline implements Tracker.
func (t *RedisTracker) SetOnline(ctx context.Context, userID, username string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, OnlineUsersKey, userID)
		pipe.HSet(ctx, UserKey(userID),
			"username", username,
			"status", "online",
			"last_seen", t.now().UTC().Format(time.RFC3339),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set online %s: %w", userID, err)
	}
	return nil
}

// SetOffline implements Tracker.
func (t *RedisTracker) SetOffline(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	_, err := t.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, OnlineUsersKey, userID)
		pipe.HSet(ctx, UserKey(userID),
			"status", "offline",
			"last_seen", t.now().UTC().Format(time.RFC3339),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set offline %s: %w", userID, err)
	}
	return nil
}

// IsOnline reports whether userID is in the online set.
func (t *RedisTracker) IsOnline(ctx context.Context, userID string) (bool, error) {
	return t.rdb.SIsMember(ctx, OnlineUsersKey, userID).Result()
}

// Close closes the Redis client.
func (t *RedisTracker) Close() error {
	return t.rdb.Close()
}
