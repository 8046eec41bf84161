package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr      string `yaml:"addr" json:"addr" env:"ADDR"`
	Password  string `yaml:"password" json:"password" env:"PASSWORD"`
	DB        int    `yaml:"db" json:"db" env:"DB"`
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix" env:"KEY_PREFIX"`
}

// RedisStore persists run logs in Redis: one string key per run plus a
// sorted-set index ordered by start time. Suitable for shared deployments.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "pageflow:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix + "runlog:"}, nil
}

func (s *RedisStore) dataKey(id string) string { return s.keyPrefix + "data:" + id }

func (s *RedisStore) indexKey() string { return s.keyPrefix + "index" }

func (s *RedisStore) Save(ctx context.Context, log *RunLog) error {
	if log.RunID == "" {
		return fmt.Errorf("run log has no run ID")
	}
	data, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode run log: %w", err)
	}

	// SETNX enforces write-once per run.
	set, err := s.client.SetNX(ctx, s.dataKey(log.RunID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("save run log: %w", err)
	}
	if !set {
		return fmt.Errorf("%w: %s", ErrDuplicate, log.RunID)
	}

	return s.client.ZAdd(ctx, s.indexKey(), redis.Z{
		Score:  float64(log.StartedAt.UnixNano()),
		Member: log.RunID,
	}).Err()
}

func (s *RedisStore) Load(ctx context.Context, id string) (*RunLog, error) {
	data, err := s.client.Get(ctx, s.dataKey(id)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run log: %w", err)
	}
	var log RunLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("decode run log %s: %w", id, err)
	}
	return &log, nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	return s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
}

func (s *RedisStore) Close() error { return s.client.Close() }

var _ Store = (*RedisStore)(nil)
