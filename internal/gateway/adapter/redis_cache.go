package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/gateway/app"
	redisclient "github.com/relaygate/relaygate/internal/redis"
)

// ResponseCache stores successful read-only payloads in Redis under their
// request signature. Unlike the quota ledger this store is fail-open: the
// dispatcher treats every error as a miss, so a cache outage degrades
// latency, never availability.
type ResponseCache struct {
	cmd redisclient.Cmdable
}

// NewResponseCache creates a ResponseCache that uses cmd for Redis
// operations.
func NewResponseCache(cmd redisclient.Cmdable) *ResponseCache {
	return &ResponseCache{cmd: cmd}
}

var _ app.ResponseCache = (*ResponseCache)(nil)

// Get returns the payload stored under signature, or a miss. Expired
// entries never surface: Redis drops them at TTL.
func (c *ResponseCache) Get(ctx context.Context, signature string) (json.RawMessage, bool, error) {
	ctx, span := tracer.Start(ctx, "redis.cache.get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "GET"),
	)

	val, err := c.cmd.Get(ctx, signature).Bytes()
	if err != nil {
		if errors.Is(err, redisclient.Nil) {
			return nil, false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, false, fmt.Errorf("cache get: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return val, true, nil
}

// Put stores payload under signature for ttl. A non-positive ttl is a
// descriptor bug; the entry is not written.
func (c *ResponseCache) Put(ctx context.Context, signature string, payload json.RawMessage, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "redis.cache.put")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SET"),
	)

	if ttl <= 0 {
		return nil
	}

	if err := c.cmd.Set(ctx, signature, []byte(payload), ttl).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("cache put: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}
