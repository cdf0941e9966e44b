package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the optional second-level cache for fetched world data, shared
// between API instances. Conversation history never goes through it.
type Store interface {
	Load(ctx context.Context, key string) (Data, bool, error)
	Save(ctx context.Context, key string, d Data, ttl time.Duration) error
}

const defaultKeyPrefix = "prestige:world:"

type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) Load(ctx context.Context, key string) (Data, bool, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Data{}, false, nil
	}
	if err != nil {
		return Data{}, false, fmt.Errorf("session store: get %s: %w", key, err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		// A record written by an incompatible build is treated as a miss.
		return Data{}, false, nil
	}
	return d, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, d Data, ttl time.Duration) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("session store: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("session store: set %s: %w", key, err)
	}
	return nil
}
