package auth

import "context"

// Identity is the caller resolved from a verified token. It lives for one request.
type Identity struct {
	ID             string `json:"id"`
	Role           Role   `json:"role"`
	AssignedMosque string `json:"assignedMosque,omitempty"`
}

// HasTenant reports whether the identity is scoped to a mosque.
func (i Identity) HasTenant() bool { return i.AssignedMosque != "" }

// IsSuperAdmin reports the global override.
func (i Identity) IsSuperAdmin() bool { return i.Role == RoleSuperAdmin }

type identityContextKey struct{}

// ContextWithIdentity attaches the authenticated identity to the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, &id)
}

// IdentityFromContext extracts the authenticated identity from the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	v, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || v == nil {
		return Identity{}, false
	}
	return *v, true
}
