package snapshotstore

import (
	"context"
	"errors"
	"fmt"

	"gradewatch/internal/components/assert"
	"gradewatch/internal/components/telemetry"
	"gradewatch/internal/grades"

	"github.com/redis/go-redis/v9"
)

const (
	report_redis_load = "redis.load"
	report_redis_save = "redis.save"
)

// DefaultRedisKey is the key the snapshot document is stored under.
const DefaultRedisKey = "gradewatch:snapshot"

// RedisStore keeps the same json document FileStore writes under a single
// redis key, a SET replaces it atomically.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	tel    telemetry.API
}

func NewRedisStore(client redis.UniversalClient, key string, tel telemetry.API) *RedisStore {
	assert.NotNil(client)
	assert.NotNil(tel)
	if key == "" {
		key = DefaultRedisKey
	}

	return &RedisStore{
		client: client,
		key:    key,
		tel:    telemetry.NewScopedAPI("snapshot_store", tel),
	}
}

func (s *RedisStore) backend() string {
	return fmt.Sprintf("redis key %s", s.key)
}

func (s *RedisStore) Load(ctx context.Context) (grades.Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.tel.ReportDebug(report_redis_load, err, s.key)
		return nil, false, &StorageError{Op: "load", Backend: s.backend(), Err: err}
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		s.tel.ReportDebug(report_redis_load, err, s.key)
		return nil, false, &StorageError{Op: "load", Backend: s.backend(), Err: err}
	}
	return snapshot, true, nil
}

func (s *RedisStore) Save(ctx context.Context, snapshot grades.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err == nil {
		err = s.client.Set(ctx, s.key, data, 0).Err()
	}
	if err != nil {
		s.tel.ReportDebug(report_redis_save, err, s.key)
		return &StorageError{Op: "save", Backend: s.backend(), Err: err}
	}
	return nil
}
