package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AngelCh415/adboard/internal/config"
	"github.com/AngelCh415/adboard/internal/models"
)

const keyNamespace = "adboard:snapshot"

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// RedisStore keeps the same one-slot-per-profile semantics as MemoryStore,
// shared between replicas. Snapshots do not expire.
type RedisStore struct {
	rdb cmdable
	raw *redis.Client
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	raw := redis.NewClient(opts)
	return &RedisStore{rdb: raw, raw: raw}, nil
}

func redisOptions(cfg config.RedisConfig) (*redis.Options, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return opts, nil
	}
	if cfg.Addr == "" {
		return nil, errors.New("redis url or address is required")
	}
	return &redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if s.raw == nil {
		return nil
	}
	return s.raw.Close()
}

func (s *RedisStore) Put(ctx context.Context, profile string, snap models.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.rdb.Set(ctx, SnapshotKey(profile), b, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, profile string) (models.Snapshot, bool, error) {
	raw, err := s.rdb.Get(ctx, SnapshotKey(profile)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *RedisStore) Clear(ctx context.Context, profile string) error {
	return s.rdb.Del(ctx, SnapshotKey(profile)).Err()
}

func SnapshotKey(profile string) string {
	return keyNamespace + ":" + profile
}
