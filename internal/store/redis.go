package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Records live under a key prefix and
// each thread keeps a set of its run IDs.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "workmate:"
	TTL      time.Duration // Expiration for records, default 0 (no expiration)
}

// NewRedisStore creates a Redis-backed run store.
func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "workmate:"
	}

	return &RedisStore{client: client, prefix: prefix, ttl: opts.TTL}
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) runKey(id string) string {
	return fmt.Sprintf("%srun:%s", s.prefix, id)
}

func (s *RedisStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s:runs", s.prefix, threadID)
}

// Save stores a record.
func (s *RedisStore) Save(ctx context.Context, record *RunRecord) error {
	if record.ID == "" {
		return fmt.Errorf("run record has no ID")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.runKey(record.ID), data, s.ttl)
	if record.ThreadID != "" {
		threadKey := s.threadKey(record.ThreadID)
		pipe.SAdd(ctx, threadKey, record.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, threadKey, s.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run record to redis: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (*RunRecord, error) {
	data, err := s.client.Get(ctx, s.runKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("run record not found: %s", id)
		}
		return nil, fmt.Errorf("failed to load run record from redis: %w", err)
	}

	var record RunRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &record, nil
}

// ListByThread returns the thread's records ordered by creation time.
func (s *RedisStore) ListByThread(ctx context.Context, threadID string) ([]*RunRecord, error) {
	ids, err := s.client.SMembers(ctx, s.threadKey(threadID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for thread %s: %w", threadID, err)
	}
	if len(ids) == 0 {
		return []*RunRecord{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.runKey(id))
	}
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch run records: %w", err)
	}

	records := make([]*RunRecord, 0, len(results))
	for _, result := range results {
		data, ok := result.(string)
		if !ok {
			// Expired records leave nil holes in the MGet reply.
			continue
		}
		var record RunRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	sortByCreatedAt(records)
	return records, nil
}

// Delete removes one record. Deleting a missing record is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.runKey(id))
	if record.ThreadID != "" {
		pipe.SRem(ctx, s.threadKey(record.ThreadID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete run record: %w", err)
	}
	return nil
}

// Clear removes every record of a thread.
func (s *RedisStore) Clear(ctx context.Context, threadID string) error {
	threadKey := s.threadKey(threadID)
	ids, err := s.client.SMembers(ctx, threadKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list runs for clearing: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.runKey(id))
	}
	pipe.Del(ctx, threadKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clear run records: %w", err)
	}
	return nil
}
