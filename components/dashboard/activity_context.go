package dashboard

import "context"

// ActivityContext identifies who performs a mutation. The audit trail records
// ActorName, falling back to UserID, then ActorID, then "System".
type ActivityContext struct {
	ActorID   string
	ActorName string
	UserID    string
	TenantID  string
}

type activityContextKey struct{}

// ContextWithActivity stores the acting user on the provided context.
func ContextWithActivity(ctx context.Context, meta ActivityContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, activityContextKey{}, meta)
}

// ActivityFromContext returns the acting user stored on ctx, if any.
func ActivityFromContext(ctx context.Context) (ActivityContext, bool) {
	if ctx == nil {
		return ActivityContext{}, false
	}
	meta, ok := ctx.Value(activityContextKey{}).(ActivityContext)
	return meta, ok
}

func activityContextFrom(ctx context.Context) ActivityContext {
	meta, _ := ActivityFromContext(ctx)
	return meta
}
