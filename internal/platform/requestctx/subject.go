package requestctx

import "context"

// UserIDHeader carries the authenticated subject from the gateway to upstream services.
const UserIDHeader = "X-User-Id"

type userIDContextKey struct{}

// WithUserID binds the authenticated account id to ctx. The binding lives as
// long as the request context does.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext returns the account id bound by the gateway filter.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	if ctx == nil {
		return 0, false
	}
	value, ok := ctx.Value(userIDContextKey{}).(int64)
	return value, ok
}
