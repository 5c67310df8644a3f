package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"smartmeter-synth/internal/observability/metrics"
)

const bearerRealm = `Bearer realm="smartmeter-synth"`

// Middleware authenticates bearer tokens and enforces the route policy.
type Middleware struct {
	secret []byte
	policy Policy
}

// NewMiddleware constructs an auth middleware.
func NewMiddleware(secret []byte, policy Policy) *Middleware {
	return &Middleware{secret: secret, policy: policy}
}

// Wrap authenticates requests on protected routes and stores the caller's
// Identity in the request context.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.policy.IsExempt(r) {
			next.ServeHTTP(w, r)
			return
		}
		required, ok := m.policy.RequiredRole(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.Authenticate(r, required)
		if err != nil {
			deny(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// Authenticate resolves the caller of r and checks that it holds required.
// Errors wrap ErrUnauthorized, ErrInvalidToken or ErrForbidden.
func (m *Middleware) Authenticate(r *http.Request, required Role) (Identity, error) {
	token := bearerToken(r)
	if token == "" {
		return Identity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}
	claims, err := ParseJWT(token, m.secret)
	if err != nil {
		return Identity{}, err
	}
	role, _ := NormalizeRole(claims.Role)
	if !RoleAtLeast(role, required) {
		return Identity{}, fmt.Errorf("%w: role %s below %s", ErrForbidden, role, required)
	}
	return Identity{TenantID: claims.TenantID, Role: role, Subject: claims.Subject}, nil
}

func deny(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		metrics.IncAuthDenied("forbidden")
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrInvalidToken):
		metrics.IncAuthDenied("invalid_token")
		w.Header().Set("WWW-Authenticate", bearerRealm+`, error="invalid_token"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		metrics.IncAuthDenied("missing_token")
		w.Header().Set("WWW-Authenticate", bearerRealm)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
