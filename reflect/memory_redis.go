package reflect

import (
	"context"
	"encoding/json"

	"github.com/calibrateai/accuracy/accuracytype"
	"github.com/go-redis/redis/v8"
)

// redisStore is the "ets" (shared table) storage mode: entries live in a
// redis hash keyed by tableName, one field per entry ID, matching the
// teacher's redis-backed shared-state convention.
type redisStore struct {
	client    *redis.Client
	tableName string
}

func newRedisStore(client *redis.Client, tableName string) *redisStore {
	return &redisStore{client: client, tableName: tableName}
}

func (s *redisStore) Put(ctx context.Context, entry accuracytype.ReflexionMemoryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.tableName, entry.ID, data).Err()
}

func (s *redisStore) All(ctx context.Context) ([]accuracytype.ReflexionMemoryEntry, error) {
	raw, err := s.client.HGetAll(ctx, s.tableName).Result()
	if err != nil {
		return nil, err
	}
	out := make([]accuracytype.ReflexionMemoryEntry, 0, len(raw))
	for _, v := range raw {
		var entry accuracytype.ReflexionMemoryEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *redisStore) Delete(ctx context.Context, id string) error {
	return s.client.HDel(ctx, s.tableName, id).Err()
}

func (s *redisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.tableName).Err()
}
