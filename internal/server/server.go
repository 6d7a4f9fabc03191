// Package server assembles a runnable QueryGate platform from
// configuration: it constructs the configured session store backend,
// runs database migrations, and hands everything to the platform.
package server

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/querygate/querygate/pkg/database/migrate"
	"github.com/querygate/querygate/pkg/platform"
	pgstore "github.com/querygate/querygate/pkg/session/postgres"
	redisstore "github.com/querygate/querygate/pkg/session/redis"
)

// Version is the server version reported by the version flag.
const Version = "1.0.0"

// New builds a platform from the config file at path. An empty path
// uses defaults: in-memory sessions, noop analysis and LLM backends.
// The returned cleanup releases store backends and must run after the
// platform stops.
func New(configPath string) (*platform.Platform, func() error, error) {
	cfg := platform.DefaultConfig()
	if configPath != "" {
		loaded, err := platform.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	opts, cleanup, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	p, err := platform.New(cfg, opts...)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

// buildStore constructs the configured session store backend and the
// cleanup that releases it.
func buildStore(cfg *platform.Config) ([]platform.Option, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Session.Store {
	case "memory":
		return nil, noop, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.Session.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening session database: %w", err)
		}
		if err := migrate.Run(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return []platform.Option{platform.WithSessionStore(pgstore.New(db))},
			db.Close, nil

	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Session.Redis.Addr,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
		})
		return []platform.Option{platform.WithSessionStore(redisstore.New(client))},
			client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
