package app

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/relaygate/relaygate/internal/domain"
)

// ProxyRequest is one inbound operation, built by the port layer from the
// authenticated tenant context plus the incoming method/path/body.
type ProxyRequest struct {
	TenantID string

	// UserID and APIKeyID attribute the call for audit; either may be empty.
	UserID   string
	APIKeyID string

	// EndpointKey selects the registry descriptor, e.g. "message.sendText".
	EndpointKey string

	// InstanceName is required iff the descriptor is instance-scoped.
	InstanceName string

	Body       json.RawMessage
	Query      url.Values
	PathParams map[string]string
}

// ProxyResult is the stable response envelope returned for every dispatch.
type ProxyResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ResultError    `json:"error,omitempty"`
	Meta    ResultMeta      `json:"meta"`

	// Err carries the domain error for status mapping at the port.
	// Never serialized.
	Err error `json:"-"`
}

// ResultError is the serialized error of a failed dispatch. Code is stable;
// Message is safe for untrusted callers; Details carries structured context
// such as quota state.
type ResultError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ResultMeta describes how the request was served.
type ResultMeta struct {
	Cached          bool  `json:"cached"`
	ExecutionTimeMs int64 `json:"executionTimeMs"`
	QuotaConsumed   int64 `json:"quotaConsumed"`
}

// Decision is the quota ledger's verdict for one reservation attempt. On
// rejection, Period names the first offending window and Used/Remaining/
// ResetAt describe that window's bucket.
type Decision struct {
	Allowed   bool
	Period    domain.Period
	Used      int64
	Remaining int64
	Limit     int64
	ResetAt   time.Time
}

// PeriodUsage is one window's usage snapshot, for dashboards.
type PeriodUsage struct {
	Period  domain.Period `json:"period"`
	Used    int64         `json:"used"`
	Limit   int64         `json:"limit"`
	ResetAt time.Time     `json:"resetAt"`
}

// Instance is a tenant-owned messaging session resolved from the instance
// store. APIKey is the provider credential and must never be logged.
type Instance struct {
	TenantID           string
	InstanceName       string
	ProviderInstanceID string
	APIKey             string
	Status             string
}

// UpstreamCall is one concrete provider request built by the dispatcher.
type UpstreamCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   json.RawMessage

	// APIKey authenticates the call with the provider. Empty for
	// instance-free endpoints that use the gateway's own credential.
	APIKey string
}

// QuotaLedger reserves and reports per-tenant usage.
type QuotaLedger interface {
	// CheckAndReserve atomically charges weight against every enforced
	// window, rolling the charge back if any window rejects. A rejected
	// request leaves all counters unchanged. Returns
	// domain.ErrStoreUnavailable on store failure (fail-closed).
	CheckAndReserve(ctx context.Context, tenantID string, qt domain.QuotaType, weight int64, limits domain.PeriodLimits) (Decision, error)

	// Usage reads the current buckets without charging.
	Usage(ctx context.Context, tenantID string, qt domain.QuotaType, limits domain.PeriodLimits) ([]PeriodUsage, error)
}

// ResponseCache stores successful read-only payloads under a signature.
// Both methods are best-effort; errors degrade to miss/no-write.
type ResponseCache interface {
	Get(ctx context.Context, signature string) (json.RawMessage, bool, error)
	Put(ctx context.Context, signature string, payload json.RawMessage, ttl time.Duration) error
}

// InstanceStore resolves tenant-owned instances. Instances of other tenants
// are indistinguishable from missing ones.
type InstanceStore interface {
	Resolve(ctx context.Context, tenantID, instanceName string) (*Instance, error)
}

// UpstreamCaller executes provider calls under the resilience policy
// (timeout, circuit breaker, idempotent-only retry).
type UpstreamCaller interface {
	Do(ctx context.Context, call UpstreamCall) (json.RawMessage, error)
}

// Sample is one dispatch outcome reported to the metrics recorder.
type Sample struct {
	EndpointKey   string
	TenantID      string
	StatusClass   string
	LatencyMs     int64
	Cached        bool
	QuotaConsumed int64
}

// MetricsRecorder receives dispatch outcomes. Implementations must be
// fire-and-forget: never block and never fail the request path.
type MetricsRecorder interface {
	Record(ctx context.Context, s Sample)
}
