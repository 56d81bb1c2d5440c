// Package app contains the request dispatcher: the linear per-request
// pipeline that composes the endpoint registry, quota ledger, response
// cache, and resilient upstream client into one stable envelope.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/errmap"
	"github.com/relaygate/relaygate/internal/gateway/registry"
)

var tracer = otel.Tracer("gateway/app")

var (
	dispatchesTotal       metric.Int64Counter
	quotaRejectionsTotal  metric.Int64Counter
	cacheHitsTotal        metric.Int64Counter
	upstreamFailuresTotal metric.Int64Counter
	dispatchLatency       metric.Float64Histogram
)

func init() {
	m := otel.Meter("gateway/app")

	dispatchesTotal, _ = m.Int64Counter("gateway_dispatches_total",
		metric.WithDescription("Total dispatched proxy requests"))
	quotaRejectionsTotal, _ = m.Int64Counter("gateway_quota_rejections_total",
		metric.WithDescription("Total requests rejected by the quota ledger"))
	cacheHitsTotal, _ = m.Int64Counter("gateway_cache_hits_total",
		metric.WithDescription("Total responses served from the response cache"))
	upstreamFailuresTotal, _ = m.Int64Counter("gateway_upstream_failures_total",
		metric.WithDescription("Total failed upstream provider calls"))
	dispatchLatency, _ = m.Float64Histogram("gateway_dispatch_duration_ms",
		metric.WithDescription("Wall-clock dispatch duration in milliseconds"))
}

// DispatcherConfig holds the dependencies for Dispatcher.
type DispatcherConfig struct {
	Registry  *registry.Registry
	Ledger    QuotaLedger
	Cache     ResponseCache
	Instances InstanceStore
	Upstream  UpstreamCaller
	Metrics   MetricsRecorder
	Plan      domain.Plan
	Clock     domain.Clock
	Logger    *slog.Logger
}

// Dispatcher orchestrates the per-request pipeline. It holds no per-request
// state; every Dispatch call runs independently and concurrently.
type Dispatcher struct {
	registry  *registry.Registry
	ledger    QuotaLedger
	cache     ResponseCache
	instances InstanceStore
	upstream  UpstreamCaller
	metrics   MetricsRecorder
	plan      domain.Plan
	clock     domain.Clock
	logger    *slog.Logger

	// flight collapses concurrent identical cacheable misses into a single
	// upstream call.
	flight singleflight.Group
}

// NewDispatcher creates a Dispatcher with the given dependencies.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		registry:  cfg.Registry,
		ledger:    cfg.Ledger,
		cache:     cfg.Cache,
		instances: cfg.Instances,
		upstream:  cfg.Upstream,
		metrics:   cfg.Metrics,
		plan:      cfg.Plan,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
	}
}

// Dispatch runs the full pipeline for one request and always returns an
// envelope. Pipeline order is fixed: resolve descriptor, verify instance
// ownership, reserve quota, consult cache, call upstream, write through.
// Quota is charged before the cache is consulted and is never refunded —
// cache hits and upstream failures both count against the plan, so the
// cache cannot be used to bypass metering.
func (d *Dispatcher) Dispatch(ctx context.Context, req ProxyRequest) ProxyResult {
	start := d.clock.Now()

	ctx, span := tracer.Start(ctx, "gateway.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.endpoint_key", req.EndpointKey),
		attribute.String("gateway.tenant_id", req.TenantID),
	)

	result := d.run(ctx, req)
	result.Meta.ExecutionTimeMs = d.clock.Now().Sub(start).Milliseconds()

	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}

	d.record(ctx, req, result)
	return result
}

// run executes the pipeline up to envelope assembly. Meta.ExecutionTimeMs is
// filled by Dispatch.
func (d *Dispatcher) run(ctx context.Context, req ProxyRequest) ProxyResult {
	// 1. Resolve descriptor. Unknown key fails closed: no charge, no call.
	desc, err := d.registry.Lookup(req.EndpointKey)
	if err != nil {
		return failure(err, 0, nil)
	}

	// 2. Validate request shape, then verify instance ownership, all before
	// spending anything.
	if len(req.InstanceName) > domain.MaxInstanceName {
		return failure(fmt.Errorf("dispatch %s: instance name exceeds %d bytes: %w",
			desc.Key, domain.MaxInstanceName, domain.ErrInvalidInput), 0, nil)
	}
	if len(req.Query) > domain.MaxQueryParams {
		return failure(fmt.Errorf("dispatch %s: more than %d query parameters: %w",
			desc.Key, domain.MaxQueryParams, domain.ErrInvalidInput), 0, nil)
	}
	req.Query = clampPageSize(req.Query)

	var inst *Instance
	if desc.RequiresInstance {
		if req.InstanceName == "" {
			return failure(fmt.Errorf("dispatch %s: %w", desc.Key, domain.ErrInstanceRequired), 0, nil)
		}
		inst, err = d.instances.Resolve(ctx, req.TenantID, req.InstanceName)
		if err != nil {
			return failure(err, 0, nil)
		}
		if inst.Status != "" && inst.Status != domain.InstanceStatusConnected {
			return failure(fmt.Errorf("dispatch %s: instance %q is %s: %w",
				desc.Key, req.InstanceName, inst.Status, domain.ErrInstanceNotConnected), 0, nil)
		}
	}

	// 3. Reserve quota. Store failure rejects the request (fail-closed):
	// degrading to unlimited usage would defeat the ledger.
	limits := d.plan[desc.QuotaType]
	decision, err := d.ledger.CheckAndReserve(ctx, req.TenantID, desc.QuotaType, desc.QuotaWeight, limits)
	if err != nil {
		return failure(err, 0, nil)
	}
	if !decision.Allowed {
		quotaRejectionsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("quota_type", string(desc.QuotaType))))
		return failure(domain.ErrQuotaExceeded, 0, map[string]any{
			"period":    string(decision.Period),
			"limit":     decision.Limit,
			"remaining": decision.Remaining,
			"resetAt":   decision.ResetAt.UTC().Format(time.RFC3339),
		})
	}
	consumed := desc.QuotaWeight

	// 4. Cache lookup. Method safety is re-checked here so a misconfigured
	// descriptor can never cache a mutating call.
	cacheable := desc.Cacheable && desc.CacheTTL > 0 && desc.ReadOnly()
	var sig string
	if cacheable {
		sig = Signature(req.TenantID, desc.Key, req.InstanceName, req.Query, req.Body)
		if payload, ok, cacheErr := d.cache.Get(ctx, sig); cacheErr != nil {
			// Best-effort store: a cache failure is a miss, never a request
			// failure.
			d.logger.WarnContext(ctx, "cache read failed, treating as miss",
				slog.String("endpoint_key", desc.Key),
				slog.String("error", cacheErr.Error()))
		} else if ok {
			cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("endpoint_key", desc.Key)))
			return ProxyResult{
				Success: true,
				Data:    payload,
				Meta:    ResultMeta{Cached: true, QuotaConsumed: consumed},
			}
		}
	}

	// 5. Build and execute the upstream call. The path carries the
	// provider-side instance identifier; tenant-local names are not unique
	// across tenants.
	pathInstance := req.InstanceName
	if inst != nil && inst.ProviderInstanceID != "" {
		pathInstance = inst.ProviderInstanceID
	}
	path, err := registry.ResolvePath(desc, pathInstance, req.PathParams)
	if err != nil {
		return failure(err, consumed, nil)
	}

	call := UpstreamCall{
		Method: desc.Method,
		Path:   path,
		Query:  req.Query,
		Body:   req.Body,
	}
	if inst != nil {
		call.APIKey = inst.APIKey
	}

	payload, err := d.invoke(ctx, cacheable, sig, call)
	if err != nil {
		upstreamFailuresTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint_key", desc.Key)))
		// Quota already consumed is not refunded.
		return failure(err, consumed, nil)
	}

	// 6. Write-through. Failure to cache never fails the request.
	if cacheable && len(payload) <= domain.MaxCachePayload {
		if putErr := d.cache.Put(ctx, sig, payload, desc.CacheTTL); putErr != nil {
			d.logger.WarnContext(ctx, "cache write failed",
				slog.String("endpoint_key", desc.Key),
				slog.String("error", putErr.Error()))
		}
	}

	return ProxyResult{
		Success: true,
		Data:    payload,
		Meta:    ResultMeta{QuotaConsumed: consumed},
	}
}

// invoke calls the upstream, collapsing concurrent identical cacheable
// requests into one provider call via singleflight.
func (d *Dispatcher) invoke(ctx context.Context, cacheable bool, sig string, call UpstreamCall) (json.RawMessage, error) {
	if !cacheable {
		return d.upstream.Do(ctx, call)
	}

	v, err, _ := d.flight.Do(sig, func() (any, error) {
		return d.upstream.Do(ctx, call)
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Usage reads the tenant's current buckets for one quota type without
// charging. Backs the external usage dashboard.
func (d *Dispatcher) Usage(ctx context.Context, tenantID string, qt domain.QuotaType) ([]PeriodUsage, error) {
	ctx, span := tracer.Start(ctx, "gateway.usage")
	defer span.End()

	return d.ledger.Usage(ctx, tenantID, qt, d.plan[qt])
}

// record reports the dispatch outcome. The recorder contract is
// fire-and-forget; a nil recorder disables reporting.
func (d *Dispatcher) record(ctx context.Context, req ProxyRequest, result ProxyResult) {
	class := errmap.StatusClass(result.Err)

	dispatchesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint_key", req.EndpointKey),
		attribute.String("status_class", class),
		attribute.Bool("cached", result.Meta.Cached),
	))
	dispatchLatency.Record(ctx, float64(result.Meta.ExecutionTimeMs), metric.WithAttributes(
		attribute.String("endpoint_key", req.EndpointKey)))

	if d.metrics == nil {
		return
	}
	d.metrics.Record(ctx, Sample{
		EndpointKey:   req.EndpointKey,
		TenantID:      req.TenantID,
		StatusClass:   class,
		LatencyMs:     result.Meta.ExecutionTimeMs,
		Cached:        result.Meta.Cached,
		QuotaConsumed: result.Meta.QuotaConsumed,
	})
}

// clampPageSize bounds the pageSize query parameter to [1, MaxPageSize]. An
// unparseable or non-positive value falls back to DefaultPageSize; requests
// without the parameter pass through untouched. The input map is never
// mutated.
func clampPageSize(query url.Values) url.Values {
	raw := query.Get("pageSize")
	if raw == "" {
		return query
	}

	size, err := strconv.Atoi(raw)
	switch {
	case err != nil || size < 1:
		size = domain.DefaultPageSize
	case size > domain.MaxPageSize:
		size = domain.MaxPageSize
	}

	normalized := make(url.Values, len(query))
	for k, v := range query {
		normalized[k] = v
	}
	normalized.Set("pageSize", strconv.Itoa(size))
	return normalized
}

// failure assembles a failure envelope from a domain error. Raw upstream
// bodies and internal details never reach the caller; errmap substitutes an
// opaque message for unclassified errors.
func failure(err error, consumed int64, details map[string]any) ProxyResult {
	httpErr := errmap.ToHTTPError(err)
	return ProxyResult{
		Success: false,
		Error: &ResultError{
			Code:    httpErr.Code,
			Message: httpErr.Message,
			Details: details,
		},
		Meta: ResultMeta{QuotaConsumed: consumed},
		Err:  err,
	}
}
