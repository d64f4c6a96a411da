package health

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Probes implements Checker over the live pool and redis client.
type Probes struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// PingDB probes Postgres within the timeout.
func (p Probes) PingDB(ctx context.Context, timeout time.Duration) error {
	if p.Pool == nil {
		return errors.New("database not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Pool.Ping(ctx)
}

// PingRedis probes redis within the timeout.
func (p Probes) PingRedis(ctx context.Context, timeout time.Duration) error {
	if p.Redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Redis.Ping(ctx).Err()
}
