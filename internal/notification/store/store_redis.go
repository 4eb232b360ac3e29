package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"bloodlink/internal/notification"
	id "bloodlink/pkg/domain"
)

const redisKeyPrefix = "bloodlink:notifications:request:"

// RedisStore keeps each request's ledger as a Redis list of JSON records.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func requestKey(requestID id.RequestID) string {
	return redisKeyPrefix + requestID.String()
}

// AppendBatch pushes every record in one MULTI/EXEC.
func (s *RedisStore) AppendBatch(ctx context.Context, records []notification.Record) error {
	if len(records) == 0 {
		return nil
	}
	payloads := make(map[string][]any)
	keys := make([]string, 0)
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		key := requestKey(r.RequestID)
		if _, ok := payloads[key]; !ok {
			keys = append(keys, key)
		}
		payloads[key] = append(payloads[key], b)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.RPush(ctx, key, payloads[key]...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append notifications batch: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByRequest(ctx context.Context, requestID id.RequestID) ([]notification.Record, error) {
	raw, err := s.client.LRange(ctx, requestKey(requestID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	records := make([]notification.Record, 0, len(raw))
	for _, item := range raw {
		var r notification.Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		records = append(records, r)
	}
	return records, nil
}
