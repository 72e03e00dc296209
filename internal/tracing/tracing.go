package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/loopdocs/docdesk/internal/contexts"
)

type Config struct {
	TraceHeader   string `conf:"trace_header" yaml:"trace_header" json:"trace_header"`
	RequestHeader string `conf:"request_header" yaml:"request_header" json:"request_header"`
}

// GenerateTraceID generates a trace id, formatted as dd-{{uuid}}.
func GenerateTraceID() string {
	id := uuid.New()
	return fmt.Sprintf("dd-%s", id.String())
}

// GenerateRequestID generates a request id, formatted as ddr-{{uuid}}.
func GenerateRequestID() string {
	id := uuid.New()
	return fmt.Sprintf("ddr-%s", id.String())
}

// WithTraceID stores the trace id to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return contexts.WithTraceID(ctx, traceID)
}

// GetTraceID gets the trace id from context.
func GetTraceID(ctx context.Context) (string, bool) {
	return contexts.GetTraceID(ctx)
}

// WithRequestID stores the request id to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contexts.WithRequestID(ctx, requestID)
}

// GetRequestID gets the request id from context.
func GetRequestID(ctx context.Context) (string, bool) {
	return contexts.GetRequestID(ctx)
}

// WithOperationName stores the operation name to context.
func WithOperationName(ctx context.Context, name string) context.Context {
	return contexts.WithOperationName(ctx, name)
}

// GetOperationName gets the operation name from context.
func GetOperationName(ctx context.Context) (string, bool) {
	return contexts.GetOperationName(ctx)
}
