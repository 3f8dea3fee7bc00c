// Package cache implements the write-through inventory-snapshot cache
// spec.md §9 names as an optional external collaborator: a read-through
// cache in front of domain.InventoryRepository's balance reads, invalidated
// by aggregate id whenever a command commits a balance change. It is never
// load-bearing — every method fails open (cache miss, not error) on a Redis
// problem, grounded on the teacher's internal/service/ratelimiter's
// fail-open-on-error style for the same reason: a degraded Redis must never
// degrade the correctness of a write already committed to Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stateset/commerce-core/internal/domain"
)

// BalanceCache is a write-through cache over per-(item,location) balance
// rows, keyed the same way the outbox already keys inventory events
// (domain.BalanceKey), so cache keys and aggregate ids line up for
// invalidation.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a BalanceCache. A nil client is valid and turns every
// operation into a permanent miss — useful when Redis is not configured at
// all (spec.md §9 calls the cache "optional").
func New(client *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceCacheKey(itemID, locationID int64) string {
	return "inv:balance:" + domain.BalanceKey(itemID, locationID)
}

func balanceCacheKeyFromAggregateID(aggregateID string) string {
	return "inv:balance:" + aggregateID
}

// Get returns the cached balance and true on a hit. Any Redis error,
// including a context deadline, is logged and treated as a miss — callers
// fall back to the authoritative repository read.
func (c *BalanceCache) Get(ctx context.Context, itemID, locationID int64) (domain.LocationBalance, bool) {
	if c == nil || c.client == nil {
		return domain.LocationBalance{}, false
	}
	raw, err := c.client.Get(ctx, balanceCacheKey(itemID, locationID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("inventory balance cache get failed", slog.Int64("item_id", itemID), slog.Int64("location_id", locationID), slog.Any("error", err))
		}
		return domain.LocationBalance{}, false
	}
	var b domain.LocationBalance
	if err := json.Unmarshal(raw, &b); err != nil {
		slog.Warn("inventory balance cache decode failed", slog.Int64("item_id", itemID), slog.Int64("location_id", locationID), slog.Any("error", err))
		return domain.LocationBalance{}, false
	}
	return b, true
}

// Set writes the balance through to the cache with the configured TTL. A
// write failure is logged but never returned as an error — a cache miss on
// the next read is always a safe degrade.
func (c *BalanceCache) Set(ctx context.Context, b domain.LocationBalance) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(b)
	if err != nil {
		slog.Warn("inventory balance cache encode failed", slog.Int64("item_id", b.InventoryItemID), slog.Int64("location_id", b.LocationID), slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, balanceCacheKey(b.InventoryItemID, b.LocationID), raw, c.ttl).Err(); err != nil {
		slog.Warn("inventory balance cache set failed", slog.Int64("item_id", b.InventoryItemID), slog.Int64("location_id", b.LocationID), slog.Any("error", err))
	}
}

// Invalidate drops the cached row for (itemID, locationID). The inventory
// commands do not call it: rows changed by a committed balance mutation are
// dropped by the handler Subscribe registers on the event bus.
func (c *BalanceCache) Invalidate(ctx context.Context, itemID, locationID int64) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, balanceCacheKey(itemID, locationID)).Err(); err != nil {
		slog.Warn("inventory balance cache invalidate failed", slog.Int64("item_id", itemID), slog.Int64("location_id", locationID), slog.Any("error", err))
	}
}

// invalidatedKinds are the inventory events whose AggregateID is a
// domain.BalanceKey — every balance-mutating write (spec.md §4.5).
var invalidatedKinds = map[domain.EventKind]bool{
	domain.EventInventoryAdjusted:            true,
	domain.EventInventoryReserved:            true,
	domain.EventInventoryReleased:            true,
	domain.EventInventoryAllocated:           true,
	domain.EventInventoryDeallocated:         true,
	domain.EventInventoryReceived:            true,
	domain.EventInventoryTransferred:         true,
	domain.EventInventoryCycleCountCompleted: true,
	domain.EventInventoryLevelSet:            true,
}

// Subscribe registers c as a C2 event-bus handler that invalidates the
// cached balance row whenever a command commits a change to it — the
// write-through half of the cache, reacting to the same in-process bus
// internal/eventbus already delivers cache-invalidation handlers on, per
// that package's own doc comment.
func (c *BalanceCache) Subscribe(bus domain.EventBus) {
	if c == nil || c.client == nil || bus == nil {
		return
	}
	bus.Subscribe(func(ctx domain.Context, e domain.Event) {
		if !invalidatedKinds[e.Kind()] {
			return
		}
		keys := []string{balanceCacheKeyFromAggregateID(e.AggregateID())}
		// A transfer is keyed on its source row; its destination row changed too.
		if t, ok := e.(domain.InventoryTransferredEvent); ok {
			if item, _, found := strings.Cut(e.AggregateID(), ":"); found {
				if itemID, err := strconv.ParseInt(item, 10, 64); err == nil {
					keys = append(keys, balanceCacheKey(itemID, t.ToLocationID))
				}
			}
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			slog.Warn("inventory balance cache invalidate-on-event failed",
				slog.String("event_kind", string(e.Kind())),
				slog.String("aggregate_id", e.AggregateID()),
				slog.Any("error", err))
		}
	})
}

// BalanceReader is the subset of inventory.Service's read surface the cache
// sits in front of.
type BalanceReader interface {
	GetBalance(ctx domain.Context, itemID, locationID int64) (domain.LocationBalance, error)
}

// GetOrLoad serves a balance read from cache on a hit, otherwise falls
// through to reader and populates the cache for next time — the read half
// of the write-through cache.
func (c *BalanceCache) GetOrLoad(ctx domain.Context, itemID, locationID int64, reader BalanceReader) (domain.LocationBalance, error) {
	if b, ok := c.Get(ctx, itemID, locationID); ok {
		return b, nil
	}
	b, err := reader.GetBalance(ctx, itemID, locationID)
	if err != nil {
		return domain.LocationBalance{}, err
	}
	c.Set(ctx, b)
	return b, nil
}

// NewClient parses a redis:// URL (the same config.RedisURL the reservation
// sweeper's asynq client connects to) into a *redis.Client.
func NewClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("op=cache.new_client: %w", err)
	}
	return redis.NewClient(opt), nil
}
