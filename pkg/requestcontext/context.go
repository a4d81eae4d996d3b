// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Values are set by transport middleware but consumed by services. Keeping this
// package free of net/http lets services import only what they need.
//
// Usage in services (read values):
//
//	tenantID := requestcontext.TenantID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithTenantID(ctx, "tenant-a")
package requestcontext

import (
	"context"
	"time"

	id "riskgate/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	tenantIDKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// TenantID retrieves the tenant scope from the context. Returns the zero value
// if not set.
func TenantID(ctx context.Context) id.TenantID {
	if tenantID, ok := ctx.Value(tenantIDKey{}).(id.TenantID); ok {
		return tenantID
	}
	return ""
}

// WithTenantID injects a tenant ID into the context.
func WithTenantID(ctx context.Context, tenantID id.TenantID) context.Context {
	return context.WithValue(ctx, tenantIDKey{}, tenantID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers and tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests that don't run the full HTTP middleware chain.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
