package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/gateway/app"
)

// maxUpstreamBody caps how much of a provider response is read into memory.
const maxUpstreamBody = 8 << 20

// UpstreamConfig holds the resilient client's dependencies and tuning.
type UpstreamConfig struct {
	// BaseURL is the provider API root; call paths are appended to it.
	BaseURL string

	// APIKey is the gateway's own provider credential, used for calls that
	// are not scoped to a tenant instance.
	APIKey string

	// CallTimeout bounds one Do invocation end to end, retries included.
	CallTimeout time.Duration

	Breaker *Breaker

	// HTTPClient overrides the transport; nil uses http.DefaultTransport.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// UpstreamClient executes provider calls under the resilience policy: every
// call is time-bounded and gated by the circuit breaker, and only idempotent
// (read) calls are retried — once, on transient transport errors — so a
// create/send is never duplicated.
type UpstreamClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	breaker    *Breaker
	httpClient *http.Client
	logger     *slog.Logger
}

// NewUpstreamClient creates an UpstreamClient from cfg.
func NewUpstreamClient(cfg UpstreamConfig) *UpstreamClient {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = domain.UpstreamTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &UpstreamClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		timeout:    cfg.CallTimeout,
		breaker:    cfg.Breaker,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

var _ app.UpstreamCaller = (*UpstreamClient)(nil)

// Do executes one provider call. When the breaker is open the upstream is
// never invoked. Timeouts and transport failures count against the breaker;
// provider-side rejections (4xx) do not, since the upstream answered.
func (c *UpstreamClient) Do(ctx context.Context, call app.UpstreamCall) (json.RawMessage, error) {
	ctx, span := tracer.Start(ctx, "upstream.call")
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", call.Method),
		attribute.String("url.path", call.Path),
	)

	probe, err := c.breaker.Allow()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("upstream %s %s: %w", call.Method, call.Path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var payload json.RawMessage
	operation := func() error {
		p, err := c.doOnce(ctx, call)
		if err != nil {
			return err
		}
		payload = p
		return nil
	}

	retries := retryBudget(call.Method)
	if probe {
		// A half-open probe invokes the upstream exactly once.
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(domain.UpstreamRetryBackoff),
			retries,
		), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		if breakerFailure(err) {
			c.breaker.OnFailure()
		} else {
			c.breaker.OnSuccess()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.breaker.OnSuccess()
	return payload, nil
}

// doOnce performs a single HTTP exchange and classifies the outcome.
// Transient transport errors are returned unwrapped so the retry policy may
// replay them; every other failure is permanent.
func (c *UpstreamClient) doOnce(ctx context.Context, call app.UpstreamCall) (json.RawMessage, error) {
	var bodyReader io.Reader
	if len(call.Body) > 0 {
		bodyReader = bytes.NewReader(call.Body)
	}

	url := c.baseURL + call.Path
	if len(call.Query) > 0 {
		url += "?" + call.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, url, bodyReader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("upstream %s %s: build request: %w: %v",
			call.Method, call.Path, domain.ErrInvalidInput, err))
	}
	req.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	apiKey := call.APIKey
	if apiKey == "" {
		apiKey = c.apiKey
	}
	if apiKey != "" {
		req.Header.Set("apikey", apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, backoff.Permanent(fmt.Errorf("upstream %s %s: %w",
				call.Method, call.Path, domain.ErrUpstreamTimeout))
		}
		if errors.Is(err, context.Canceled) {
			// Caller went away; nothing to retry.
			return nil, backoff.Permanent(fmt.Errorf("upstream %s %s: %w",
				call.Method, call.Path, err))
		}
		// Transient transport error: retryable for idempotent methods.
		return nil, fmt.Errorf("upstream %s %s: %w: %v",
			call.Method, call.Path, domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("upstream %s %s: read response: %w: %v",
			call.Method, call.Path, domain.ErrUpstreamUnavailable, err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return payload, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.WarnContext(ctx, "upstream failure",
			slog.String("method", call.Method),
			slog.String("path", call.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(truncate(payload, 512))))
		return nil, backoff.Permanent(fmt.Errorf("upstream %s %s: status %d: %w",
			call.Method, call.Path, resp.StatusCode, domain.ErrUpstreamUnavailable))

	default:
		// Provider rejected the request. The raw body stays in internal
		// logs; callers get the stable classification only.
		c.logger.DebugContext(ctx, "upstream rejected request",
			slog.String("method", call.Method),
			slog.String("path", call.Path),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(truncate(payload, 512))))
		return nil, backoff.Permanent(fmt.Errorf("upstream %s %s: status %d: %w",
			call.Method, call.Path, resp.StatusCode, domain.ErrUpstreamValidation))
	}
}

// retryBudget returns how many retries a method earns. Only idempotent
// reads are replayed; mutating calls risk duplicate side effects such as
// double-sending a message.
func retryBudget(method string) uint64 {
	switch method {
	case http.MethodGet, http.MethodHead:
		return domain.UpstreamRetryMax
	default:
		return 0
	}
}

// breakerFailure reports whether an outcome should trip the breaker.
// Timeouts and unavailability mean the upstream is unhealthy; a validation
// response means it answered.
func breakerFailure(err error) bool {
	return errors.Is(err, domain.ErrUpstreamTimeout) ||
		errors.Is(err, domain.ErrUpstreamUnavailable)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
