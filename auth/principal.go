package auth

import "context"

// Principal is the authenticated caller. TenantID scopes every query and
// ActorID is recorded on the records the caller creates.
type Principal struct {
	TenantID string
	ActorID  string
	Role     Role
}

// FromContext returns the Principal stored by Middleware
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(Context).(*Principal)
	return p, ok
}

// MustPrincipal returns the Principal stored by Middleware and panics if there is none.
// It is only valid in handlers mounted behind Middleware.
func MustPrincipal(ctx context.Context) *Principal {
	p, ok := FromContext(ctx)
	if !ok {
		panic("auth: no Principal in context")
	}
	return p
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, Context, &p)
}
