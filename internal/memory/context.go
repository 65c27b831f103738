package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ChamsBouzaiene/planloop/internal/config"
	"github.com/ChamsBouzaiene/planloop/internal/engine"
	"github.com/redis/go-redis/v9"
)

// SQLiteContextStore keeps the working context in the memory database.
type SQLiteContextStore struct {
	db *sql.DB
}

func (c *SQLiteContextStore) Put(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO context_kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to put context %s: %w", key, err)
	}
	return nil
}

func (c *SQLiteContextStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM context_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get context %s: %w", key, err)
	}
	return value, true, nil
}

const redisKeyPrefix = "planloop:ctx:"

// RedisContextStore keeps the working context in redis with a TTL so stale
// runs expire on their own.
type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisContextStore connects to addr and verifies the connection.
func NewRedisContextStore(ctx context.Context, addr string, db int, ttl time.Duration) (*RedisContextStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisContextStore{client: client, ttl: ttl}, nil
}

func (r *RedisContextStore) Put(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, redisKeyPrefix+key, value, r.ttl).Err()
}

func (r *RedisContextStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisContextStore) Close() error {
	return r.client.Close()
}

// NewContextStore builds the context store selected by cfg. The returned
// close function releases backend connections and is never nil.
func NewContextStore(ctx context.Context, cfg config.ContextConfig, store *Store) (engine.ContextStore, func() error, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return store.ContextStore(), func() error { return nil }, nil
	case "redis":
		rs, err := NewRedisContextStore(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown context backend %q", cfg.Backend)
	}
}
