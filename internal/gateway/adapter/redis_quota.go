package adapter

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/gateway/app"
	redisclient "github.com/relaygate/relaygate/internal/redis"
)

// reserveScript charges weight against every enforced window in one atomic
// step. Each key is INCRBYed and given its period TTL on first touch; if any
// resulting count exceeds its limit, every increment made by this call is
// compensated with DECRBY and the first offending window is reported. Redis
// executes scripts atomically, so no caller ever observes a partial charge.
//
// KEYS: one bucket key per enforced window.
// ARGV: weight, then (limit, ttlSeconds) per key.
// Returns {1, counts...} when admitted, {0, index, usedBefore, limit} when
// rejected.
const reserveScript = `
local weight = tonumber(ARGV[1])
local counts = {}
for i = 1, #KEYS do
  local limit = tonumber(ARGV[2*i])
  local ttl = tonumber(ARGV[2*i+1])
  local used = redis.call('INCRBY', KEYS[i], weight)
  if used == weight then
    redis.call('EXPIRE', KEYS[i], ttl)
  end
  if used > limit then
    for j = 1, i do
      redis.call('DECRBY', KEYS[j], weight)
    end
    return {0, i, used - weight, limit}
  end
  counts[i] = used
end
local result = {1}
for i = 1, #counts do
  result[i+1] = counts[i]
end
return result
`

// QuotaLedger implements per-tenant usage accounting backed by Redis.
// Redis errors follow the fail-closed policy: the caller sees
// domain.ErrStoreUnavailable and the request is rejected, never silently
// admitted.
type QuotaLedger struct {
	cmd   redisclient.Cmdable
	clock domain.Clock
}

// NewQuotaLedger creates a QuotaLedger that uses cmd for Redis operations.
func NewQuotaLedger(cmd redisclient.Cmdable, clock domain.Clock) *QuotaLedger {
	return &QuotaLedger{cmd: cmd, clock: clock}
}

var _ app.QuotaLedger = (*QuotaLedger)(nil)

// CheckAndReserve atomically charges weight against the tenant's hourly,
// daily, and monthly buckets. Windows with a zero limit are not enforced.
// On admission the decision describes the tightest window; on rejection it
// describes the first offending one, with all counters left unchanged.
func (l *QuotaLedger) CheckAndReserve(ctx context.Context, tenantID string, qt domain.QuotaType, weight int64, limits domain.PeriodLimits) (app.Decision, error) {
	ctx, span := tracer.Start(ctx, "redis.quota.reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "EVAL"),
		attribute.String("gateway.quota_type", string(qt)),
	)

	now := l.clock.Now()

	var (
		keys    []string
		periods []domain.Period
		argv    = []any{weight}
	)
	for _, p := range domain.Periods {
		limit := limits.Limit(p)
		if limit <= 0 {
			continue
		}
		keys = append(keys, domain.QuotaKey(tenantID, qt, p, now))
		periods = append(periods, p)
		argv = append(argv, limit, ttlSeconds(p, now))
	}

	// Every window unenforced: the quota type is unmetered for this plan.
	if len(keys) == 0 {
		return app.Decision{Allowed: true}, nil
	}

	vals, err := l.cmd.Eval(ctx, reserveScript, keys, argv...).Int64Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return app.Decision{}, fmt.Errorf("quota reserve %s/%s: %w: %v",
			tenantID, qt, domain.ErrStoreUnavailable, err)
	}
	if len(vals) < 1 {
		return app.Decision{}, fmt.Errorf("quota reserve %s/%s: %w: empty script reply",
			tenantID, qt, domain.ErrStoreUnavailable)
	}

	if vals[0] == 0 {
		if len(vals) < 4 || vals[1] < 1 || int(vals[1]) > len(periods) {
			return app.Decision{}, fmt.Errorf("quota reserve %s/%s: %w: malformed rejection reply",
				tenantID, qt, domain.ErrStoreUnavailable)
		}
		p := periods[vals[1]-1]
		used, limit := vals[2], vals[3]
		return app.Decision{
			Allowed:   false,
			Period:    p,
			Used:      used,
			Remaining: max(limit-used, 0),
			Limit:     limit,
			ResetAt:   domain.NextReset(p, now),
		}, nil
	}

	// Admitted: report the window with the least remaining headroom.
	counts := vals[1:]
	if len(counts) != len(periods) {
		return app.Decision{}, fmt.Errorf("quota reserve %s/%s: %w: malformed admission reply",
			tenantID, qt, domain.ErrStoreUnavailable)
	}
	decision := app.Decision{Allowed: true}
	for i, p := range periods {
		limit := limits.Limit(p)
		remaining := max(limit-counts[i], 0)
		if i == 0 || remaining < decision.Remaining {
			decision.Period = p
			decision.Used = counts[i]
			decision.Remaining = remaining
			decision.Limit = limit
			decision.ResetAt = domain.NextReset(p, now)
		}
	}
	return decision, nil
}

// Usage reads the tenant's current buckets without charging, for external
// dashboards.
func (l *QuotaLedger) Usage(ctx context.Context, tenantID string, qt domain.QuotaType, limits domain.PeriodLimits) ([]app.PeriodUsage, error) {
	ctx, span := tracer.Start(ctx, "redis.quota.usage")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "MGET"),
	)

	now := l.clock.Now()

	var (
		keys    []string
		periods []domain.Period
	)
	for _, p := range domain.Periods {
		if limits.Limit(p) <= 0 {
			continue
		}
		keys = append(keys, domain.QuotaKey(tenantID, qt, p, now))
		periods = append(periods, p)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := l.cmd.MGet(ctx, keys...).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("quota usage %s/%s: %w: %v",
			tenantID, qt, domain.ErrStoreUnavailable, err)
	}

	usage := make([]app.PeriodUsage, 0, len(periods))
	for i, p := range periods {
		var used int64
		if i < len(vals) && vals[i] != nil {
			if s, ok := vals[i].(string); ok {
				used = parseCount(s)
			}
		}
		usage = append(usage, app.PeriodUsage{
			Period:  p,
			Used:    used,
			Limit:   limits.Limit(p),
			ResetAt: domain.NextReset(p, now),
		})
	}
	return usage, nil
}

// ttlSeconds returns the whole seconds until the bucket's period boundary,
// rounded up so the key never outlives its window by default nor expires
// early.
func ttlSeconds(p domain.Period, now time.Time) int64 {
	d := domain.NextReset(p, now).Sub(now)
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 1 {
		secs = 1
	}
	return secs
}

// parseCount parses a stored counter, treating garbage as zero. The ledger
// is the sole writer of its keys, so garbage means manual interference.
func parseCount(s string) int64 {
	var n int64
	_, err := fmt.Sscanf(s, "%d", &n)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
