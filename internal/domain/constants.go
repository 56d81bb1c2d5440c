package domain

import "time"

// Normative limits and timeout contracts. These are compiled defaults that
// can be overridden via configuration.
const (
	// Request limits
	MaxBodySize     = 256 * 1024 // 256 KB max proxied request body
	MaxInstanceName = 64         // Max length of a tenant instance name
	MaxQueryParams  = 32         // Max query parameters forwarded upstream
	DefaultPageSize = 50
	MaxPageSize     = 100

	// Timeout contracts
	RedisTimeout    = 2 * time.Second  // Max time for Redis operations
	DynamoDBTimeout = 5 * time.Second  // Max time for DynamoDB operations
	UpstreamTimeout = 30 * time.Second // Max time for one upstream provider call

	// Upstream retry policy: idempotent calls only, one retry
	UpstreamRetryMax     = 1
	UpstreamRetryBackoff = 200 * time.Millisecond

	// Circuit breaker defaults
	BreakerFailureThreshold = 5
	BreakerRecoveryTimeout  = 30 * time.Second

	// Response cache
	MaxCacheTTL     = 5 * time.Minute // Descriptor TTLs are capped here
	MaxCachePayload = 512 * 1024      // Responses larger than this are not cached

	// Graceful shutdown
	ShutdownDrainDelay  = 3 * time.Second  // Let the LB propagate endpoint removal
	ShutdownHTTPTimeout = 15 * time.Second // Max time to drain in-flight requests
	ShutdownOTELTimeout = 5 * time.Second  // Max time to flush telemetry

	// GracefulShutdownTimeout is the total shutdown budget; the phases above
	// must fit inside it.
	GracefulShutdownTimeout = 30 * time.Second
)

// Instance lifecycle statuses as stored in the instance table. Only a
// connected instance may be proxied to.
const (
	InstanceStatusConnected    = "connected"
	InstanceStatusDisconnected = "disconnected"
)
