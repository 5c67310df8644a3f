package auth

import "context"

type contextKey struct{}

// Identity is the authenticated caller attached to a request context.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, identity)
}

// IdentityFromContext returns the caller identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(contextKey{}).(Identity)
	return identity, ok
}

// TenantIDFromContext extracts the tenant id from ctx.
func TenantIDFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.TenantID
}

// RoleFromContext extracts the role from ctx.
func RoleFromContext(ctx context.Context) Role {
	identity, _ := IdentityFromContext(ctx)
	return identity.Role
}

// SubjectFromContext extracts the subject from ctx.
func SubjectFromContext(ctx context.Context) string {
	identity, _ := IdentityFromContext(ctx)
	return identity.Subject
}
