// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// response.go provides a Valkey-backed cache for encoded JSON responses.
// Read-heavy endpoints whose payload only changes on writes (the category
// tree and flat list) store their body here; every write to the underlying
// collection drops the whole group.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"cmsmini/internal/metrics"
)

const (
	// keyPrefix is the Valkey key prefix for cached responses.
	keyPrefix = "resp:"

	// genPrefix holds the per-group generation counters. It sits outside
	// keyPrefix+group so invalidation scans never match it.
	genPrefix = "respgen:"

	// DefaultTTL is how long a cached response lives without a write.
	DefaultTTL = 10 * time.Minute
)

// Keys for the cached category responses. They share the Categories group
// prefix so one invalidation clears them all.
const (
	Categories          = "categories:"
	KeyCategoryAll      = Categories + "all"
	KeyCategoryTree     = Categories + "tree"
	KeyCategoryTreeFlat = Categories + "tree:flat"
)

// ResponseCache stores encoded response bodies in Valkey. Errors talking
// to Valkey are logged and treated as misses; the cache never fails a
// request.
//
// Every group has a generation counter that Invalidate bumps. Entries are
// stored under the generation current when the lookup missed, so a body
// built before a write and stored after it lands under a retired
// generation and is never served.
type ResponseCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResponseCache creates a cache backed by client. A zero ttl uses
// DefaultTTL.
func NewResponseCache(client *redis.Client, ttl time.Duration) *ResponseCache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{client: client, ttl: ttl}
}

// group returns the invalidation group of key: everything up to and
// including the first colon.
func group(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i+1]
	}
	return key
}

// slot resolves key to its storage key under the group's current
// generation.
func (c *ResponseCache) slot(ctx context.Context, key string) (string, error) {
	g := group(key)
	gen, err := c.client.Get(ctx, genPrefix+g).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return keyPrefix + g + strconv.FormatInt(gen, 10) + ":" + strings.TrimPrefix(key, g), nil
}

// Get returns the cached body for key and whether it was found. On a miss
// the returned slot is where a freshly built body goes; pass it to Set.
// An empty slot means the body must not be stored.
func (c *ResponseCache) Get(ctx context.Context, key string) ([]byte, string, bool) {
	slot, err := c.slot(ctx, key)
	if err != nil {
		slog.Warn("response cache generation error", "key", key, "error", err)
		metrics.RecordCacheMiss(key)
		return nil, "", false
	}

	val, err := c.client.Get(ctx, slot).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheMiss(key)
		return nil, slot, false
	}
	if err != nil {
		slog.Warn("response cache get error", "key", key, "error", err)
		metrics.RecordCacheMiss(key)
		return nil, "", false
	}
	metrics.RecordCacheHit(key)
	return val, slot, true
}

// Set stores body in slot with the configured TTL.
func (c *ResponseCache) Set(ctx context.Context, slot string, body []byte) {
	if slot == "" {
		return
	}
	if err := c.client.Set(ctx, slot, body, c.ttl).Err(); err != nil {
		slog.Warn("response cache set error", "slot", slot, "error", err)
	}
}

// Invalidate retires the current generation of group and removes the
// entries stored under it.
func (c *ResponseCache) Invalidate(ctx context.Context, group string) {
	if err := c.client.Incr(ctx, genPrefix+group).Err(); err != nil {
		slog.Warn("response cache generation bump error", "group", group, "error", err)
	}

	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+group+"*", 100).Result()
		if err != nil {
			slog.Warn("response cache scan error", "group", group, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("response cache delete error", "group", group, "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("response cache invalidated", "group", group, "deleted", deleted)
}
