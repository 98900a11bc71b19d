package snapshotstore

import (
	"context"
	"fmt"
	"io"

	"gradewatch/internal/components/chrono"
	"gradewatch/internal/components/telemetry"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

// Config selects and configures a backend.
type Config struct {
	// Kind is one of "file" (default), "sqlite", "libsql" or "redis".
	Kind string `json:"kind"`
	// Path is the json file for "file" and the database file for "sqlite".
	Path string `json:"path"`
	// Url is the database url for "libsql".
	Url   string      `json:"url"`
	Redis RedisConfig `json:"redis"`
}

func (c Config) Validate() error {
	switch c.Kind {
	case "", "file", "sqlite":
		return nil
	case "libsql":
		if c.Url == "" {
			return fmt.Errorf("store.url is required for libsql")
		}
		return nil
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for redis")
		}
		return nil
	}
	return fmt.Errorf("unknown store kind %q", c.Kind)
}

// Open builds the configured Store, the returned closer releases the
// underlying connection.
func Open(ctx context.Context, cfg Config, time chrono.TimeAPI, tel telemetry.API) (Store, io.Closer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Kind {
	case "", "file":
		path := cfg.Path
		if path == "" {
			path = DefaultPath
		}
		return NewFileStore(path, tel), nopCloser{}, nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "data/grades.db"
		}
		db, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLStore(db, path, time, tel), db, nil
	case "libsql":
		db, err := OpenLibsql(ctx, cfg.Url)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLStore(db, "libsql", time, tel), db, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		err := client.Ping(ctx).Err()
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(client, cfg.Redis.Key, tel), client, nil
	}
	return nil, nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
