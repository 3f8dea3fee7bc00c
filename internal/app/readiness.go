// Package app wires the ambient HTTP surface (healthz/readyz/metrics) and
// the command-side services together for cmd/server and cmd/worker,
// mirroring the teacher's internal/app wiring role.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pinger is the minimal interface a database pool must satisfy for a
// readiness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DBCheck builds the "db" readiness probe.
func DBCheck(pool Pinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil {
			return fmt.Errorf("db not configured")
		}
		return pool.Ping(ctx)
	}
}

// RedisCheck builds the "redis" readiness probe for the optional
// inventory-snapshot cache (SPEC_FULL.md §3). A nil client means the cache
// is not configured, which is a valid deployment (the cache is optional),
// so it reports healthy rather than failing readiness.
func RedisCheck(client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return nil
		}
		return client.Ping(ctx).Err()
	}
}
