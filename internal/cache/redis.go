package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps cache snapshots in Redis. Keys expire together
// with the cache validity window so a stale snapshot never outlives it.
type RedisSnapshotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisSnapshotConfig holds configuration for the Redis snapshot store.
type RedisSnapshotConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisSnapshotStore connects to Redis and verifies the connection.
func NewRedisSnapshotStore(cfg RedisSnapshotConfig) (*RedisSnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     4,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisSnapshotStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisSnapshotStoreWithClient wraps an existing client.
func NewRedisSnapshotStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSnapshotStore {
	if keyPrefix == "" {
		keyPrefix = "chronolookup:snapshot"
	}
	return &RedisSnapshotStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RedisSnapshotStore) key(name string) string {
	return s.keyPrefix + ":" + name
}

// SaveSnapshot stores the payload, replacing any previous snapshot.
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, name string, payload []byte) error {
	return s.client.Set(ctx, s.key(name), payload, s.ttl).Err()
}

// LoadSnapshot returns the stored payload.
func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DeleteSnapshot removes the stored payload.
func (s *RedisSnapshotStore) DeleteSnapshot(ctx context.Context, name string) error {
	return s.client.Del(ctx, s.key(name)).Err()
}

// GetStats reports connection state and the remaining TTL of a snapshot.
func (s *RedisSnapshotStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"backend": "redis", "key_prefix": s.keyPrefix}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	keys, err := s.client.Keys(ctx, s.keyPrefix+":*").Result()
	if err != nil {
		return nil, err
	}
	stats["snapshots"] = len(keys)
	return stats, nil
}

// Close closes the Redis connection.
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}

var _ SnapshotStore = (*RedisSnapshotStore)(nil)
