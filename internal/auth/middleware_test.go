package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newTestHandler(secret []byte, seen *Identity) http.Handler {
	policy := NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	mw := NewMiddleware(secret, policy)
	return mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen, _ = IdentityFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	handler := newTestHandler([]byte("test-secret"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/generate", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if got := resp.Header().Get("WWW-Authenticate"); got != bearerRealm {
		t.Fatalf("unexpected challenge: %q", got)
	}
}

func TestAuthMiddleware_ExemptPaths(t *testing.T) {
	handler := newTestHandler([]byte("test-secret"), nil)

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestAuthMiddleware_ViewerCanGenerate(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "tenant-a", "viewer", time.Hour)
	var seen Identity
	handler := newTestHandler(secret, &seen)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if seen.TenantID != "tenant-a" || seen.Role != RoleViewer || seen.Subject != "user-1" {
		t.Fatalf("unexpected identity: %+v", seen)
	}
}

func TestAuthMiddleware_ViewerForbiddenExports(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "tenant-a", "viewer", time.Hour)
	handler := newTestHandler(secret, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/consumption.csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthMiddleware_OperatorCanExport(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "tenant-a", "operator", time.Hour)
	handler := newTestHandler(secret, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/consumption.xlsx", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "tenant-a", "admin", -time.Minute)
	handler := newTestHandler(secret, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token := mustToken(t, []byte("other-secret"), "tenant-a", "admin", time.Hour)
	handler := newTestHandler([]byte("test-secret"), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/generate", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if got := resp.Header().Get("WWW-Authenticate"); !strings.Contains(got, `error="invalid_token"`) {
		t.Fatalf("unexpected challenge: %q", got)
	}
}

func TestMiddleware_Authenticate(t *testing.T) {
	secret := []byte("test-secret")
	mw := NewMiddleware(secret, NewDefaultPolicy(nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/consumption.csv", nil)
	if _, err := mw.Authenticate(req, RoleOperator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	req.Header.Set("Authorization", "Basic abc")
	if _, err := mw.Authenticate(req, RoleOperator); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for basic auth, got %v", err)
	}

	req.Header.Set("Authorization", "bearer "+mustToken(t, secret, "tenant-a", "viewer", time.Hour))
	if _, err := mw.Authenticate(req, RoleOperator); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	req.Header.Set("Authorization", "Bearer "+mustToken(t, secret, "tenant-a", "admin", time.Hour))
	identity, err := mw.Authenticate(req, RoleOperator)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.TenantID != "tenant-a" || identity.Role != RoleAdmin || identity.Subject != "user-1" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestIssueJWT_RoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := IssueJWT(secret, "tenant-b", RoleOperator, "ci", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := ParseJWT(token, secret)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.TenantID != "tenant-b" || claims.Role != "operator" || claims.Subject != "ci" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if _, err := IssueJWT(secret, "tenant-b", Role("root"), "ci", time.Hour); err == nil {
		t.Fatalf("expected invalid role error")
	}
}

func TestRoleAtLeast(t *testing.T) {
	if !RoleAtLeast(RoleAdmin, RoleOperator) {
		t.Fatalf("admin should satisfy operator")
	}
	if RoleAtLeast(RoleViewer, RoleOperator) {
		t.Fatalf("viewer should not satisfy operator")
	}
	if RoleAtLeast(Role(""), Role("")) {
		t.Fatalf("empty role should never be authorized")
	}
	if role, ok := NormalizeRole(" Operator "); !ok || role != RoleOperator {
		t.Fatalf("unexpected normalization: %q %v", role, ok)
	}
}

func mustToken(t *testing.T, secret []byte, tenantID, role string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
