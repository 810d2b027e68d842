// Package store opens the configured credential store.
package store

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/account-service/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/account-service/internal/infrastructure/redis"
	"github.com/ErlanBelekov/account-service/internal/repository"
)

const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type Options struct {
	Driver      string
	DatabaseURL string
	RedisURL    string
	RedisPrefix string
	// Migrate applies the Postgres schema on open. Ignored for Redis.
	Migrate bool
}

// Open connects to the store named by opts.Driver. The returned func releases
// the connection.
func Open(ctx context.Context, opts Options) (repository.UserRepository, func(), error) {
	switch opts.Driver {
	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if opts.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return postgres.NewUserRepository(pool), pool.Close, nil

	case DriverRedis:
		rdb, err := redis.NewClient(ctx, opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewUserRepository(rdb, opts.RedisPrefix), func() { _ = rdb.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
