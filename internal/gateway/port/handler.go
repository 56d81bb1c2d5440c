// Package port exposes the gateway over HTTP. Routes are generated from
// the endpoint registry, so the external surface and the descriptor table
// can never drift apart.
package port

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/errmap"
	"github.com/relaygate/relaygate/internal/gateway/app"
	"github.com/relaygate/relaygate/internal/gateway/registry"
)

// Handler serves the proxy surface: one route per registry descriptor under
// /api, plus the usage read endpoint.
type Handler struct {
	dispatcher *app.Dispatcher
	registry   *registry.Registry
	logger     *slog.Logger
}

// NewHandler creates a Handler around the dispatcher.
func NewHandler(dispatcher *app.Dispatcher, reg *registry.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{dispatcher: dispatcher, registry: reg, logger: logger}
}

// Mount registers every proxy route and the usage endpoint on r. The caller
// applies the auth middleware; Mount assumes every request carries a
// principal.
func (h *Handler) Mount(r chi.Router) {
	for _, key := range h.registry.Keys() {
		desc, err := h.registry.Lookup(key)
		if err != nil {
			continue
		}
		r.Method(desc.Method, "/api"+desc.PathTemplate, h.proxy(desc.Key))
	}
	r.Get("/api/usage/{quotaType}", h.usage)
}

// proxy builds the handler for one descriptor. The endpoint key is fixed at
// mount time; everything else comes from the request.
func (h *Handler) proxy(endpointKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Correlation id for support: returned to the caller and attached
		// to every log line about this request.
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		principal, ok := PrincipalFromContext(r.Context())
		if !ok {
			writeError(w, domain.ErrUnauthorized)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, domain.MaxBodySize))
		if err != nil {
			writeError(w, fmt.Errorf("read request body: %w", domain.ErrInvalidInput))
			return
		}

		result := h.dispatcher.Dispatch(r.Context(), app.ProxyRequest{
			TenantID:     principal.TenantID,
			UserID:       principal.UserID,
			APIKeyID:     principal.APIKeyID,
			EndpointKey:  endpointKey,
			InstanceName: chi.URLParam(r, "instance"),
			Body:         body,
			Query:        r.URL.Query(),
		})

		status := http.StatusOK
		if !result.Success {
			status = errmap.ToHTTPStatusCode(result.Err)
			h.logger.WarnContext(r.Context(), "proxy request failed",
				slog.String("request_id", requestID),
				slog.String("endpoint_key", endpointKey),
				slog.String("tenant_id", principal.TenantID),
				slog.String("code", result.Error.Code))
		}
		writeJSON(w, status, result)
	}
}

// usage serves GET /api/usage/{quotaType}: the tenant's current counters
// per accounting window. Reading usage is free.
func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrUnauthorized)
		return
	}

	qt, err := domain.ParseQuotaType(chi.URLParam(r, "quotaType"))
	if err != nil {
		writeError(w, err)
		return
	}

	usage, err := h.dispatcher.Usage(r.Context(), principal.TenantID, qt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usageResponse{
		Success:   true,
		QuotaType: qt,
		Usage:     usage,
	})
}

type usageResponse struct {
	Success   bool              `json:"success"`
	QuotaType domain.QuotaType  `json:"quotaType"`
	Usage     []app.PeriodUsage `json:"usage"`
}

// writeError renders a bare failure envelope for errors raised before the
// dispatcher runs.
func writeError(w http.ResponseWriter, err error) {
	httpErr := errmap.ToHTTPError(err)
	writeJSON(w, httpErr.StatusCode, app.ProxyResult{
		Success: false,
		Error: &app.ResultError{
			Code:    httpErr.Code,
			Message: httpErr.Message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("write response failed", slog.String("error", err.Error()))
	}
}
