package port

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/relaygate/relaygate/internal/domain"
)

// Principal identifies the authenticated caller of a proxy request.
type Principal struct {
	TenantID string
	UserID   string
	APIKeyID string
}

// tenantClaims is the expected JWT payload. Tokens are minted by the
// control plane; this service only verifies them.
type tenantClaims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	APIKeyID string `json:"api_key_id"`
	jwt.RegisteredClaims
}

type principalCtxKey struct{}

// PrincipalFromContext returns the principal the auth middleware stored.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}

// Authenticate verifies the Authorization bearer token (HS256) and stores
// the principal in the request context. Requests without a valid token,
// or whose token carries no tenant, are rejected with the standard
// envelope before any pipeline work happens.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := authenticate(r, secret)
			if err != nil {
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), principalCtxKey{}, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, secret []byte) (Principal, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return Principal{}, fmt.Errorf("missing bearer token: %w", domain.ErrUnauthorized)
	}

	var claims tenantClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("parse bearer token: %w: %v", domain.ErrUnauthorized, err)
	}
	if claims.TenantID == "" {
		return Principal{}, fmt.Errorf("token has no tenant: %w", domain.ErrUnauthorized)
	}

	return Principal{
		TenantID: claims.TenantID,
		UserID:   claims.UserID,
		APIKeyID: claims.APIKeyID,
	}, nil
}
