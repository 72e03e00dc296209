package contexts

import (
	"context"
)

// ContextKey defines the context key type.
type ContextKey string

const (
	// containerContextKey is used to store the context container in the context.
	containerContextKey ContextKey = "context_container"
)

// Session describes the authenticated user acting on the console.
type Session struct {
	// UserID is the acting user's identifier, stringified the same way
	// the gateway stringifies row identifiers.
	UserID string

	Email string

	// Permissions holds every permission code the user currently has,
	// across all scopes.
	Permissions []string
}

// HasPermission reports whether the session holds the given code.
func (s *Session) HasPermission(code string) bool {
	for _, c := range s.Permissions {
		if c == code {
			return true
		}
	}

	return false
}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, session *Session) context.Context {
	container := getContainer(ctx)
	container.Session = session

	return withContainer(ctx, container)
}

// GetSession retrieves the session from the context.
func GetSession(ctx context.Context) (*Session, bool) {
	container := getContainer(ctx)
	return container.Session, container.Session != nil
}

// Department identifies the active department of the console.
type Department struct {
	ID      string
	Acronym string
	Name    string
}

// WithDepartment stores the active department in the context.
func WithDepartment(ctx context.Context, department *Department) context.Context {
	container := getContainer(ctx)
	container.Department = department

	return withContainer(ctx, container)
}

// GetDepartment retrieves the active department from the context.
func GetDepartment(ctx context.Context) (*Department, bool) {
	container := getContainer(ctx)
	return container.Department, container.Department != nil
}

// WithTraceID stores the trace id in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	container := getContainer(ctx)
	container.TraceID = &traceID

	return withContainer(ctx, container)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.TraceID != nil {
		return *container.TraceID, true
	}

	return "", false
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	container := getContainer(ctx)
	container.RequestID = &requestID

	return withContainer(ctx, container)
}

// GetRequestID retrieves the request id from the context.
func GetRequestID(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.RequestID != nil {
		return *container.RequestID, true
	}

	return "", false
}

// WithOperationName stores the operation name in the context.
func WithOperationName(ctx context.Context, name string) context.Context {
	container := getContainer(ctx)
	container.OperationName = &name

	return withContainer(ctx, container)
}

// GetOperationName retrieves the operation name from the context.
func GetOperationName(ctx context.Context) (string, bool) {
	container := getContainer(ctx)
	if container.OperationName != nil {
		return *container.OperationName, true
	}

	return "", false
}
