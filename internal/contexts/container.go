package contexts

import (
	"context"
)

// contextContainer contains all values in the context.
type contextContainer struct {
	Session       *Session
	Department    *Department
	TraceID       *string
	RequestID     *string
	OperationName *string
}

// getContainer retrieves the existing container from context, or creates a new one
// and stores it in the context if it doesn't exist.
func getContainer(ctx context.Context) *contextContainer {
	if container, ok := ctx.Value(containerContextKey).(*contextContainer); ok {
		return container
	}

	container := &contextContainer{}

	return container
}

// withContainer stores the container in the context (if not already stored).
func withContainer(ctx context.Context, container *contextContainer) context.Context {
	if ctx.Value(containerContextKey) == nil {
		return context.WithValue(ctx, containerContextKey, container)
	}

	return ctx
}
