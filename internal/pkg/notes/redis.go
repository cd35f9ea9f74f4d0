package notes

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const hashKey = "notes"

// RedisStore keeps every note in a single hash.
type RedisStore struct {
	client goredis.UniversalClient
	key    string
}

// NewRedisStore stores notes in the hash "<prefix>notes".
func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, key: prefix + hashKey}
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, patientID string) (string, error) {
	v, err := s.client.HGet(ctx, s.key, patientID).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("notes: hget %s: %w", patientID, err)
	}
	return v, nil
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, patientID, text string) error {
	if err := s.client.HSet(ctx, s.key, patientID, text).Err(); err != nil {
		return fmt.Errorf("notes: hset %s: %w", patientID, err)
	}
	return nil
}

// All implements Store.
func (s *RedisStore) All(ctx context.Context) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("notes: hgetall: %w", err)
	}
	return m, nil
}

// Close implements Store. The client is shared and closed by its owner.
func (s *RedisStore) Close() error { return nil }
