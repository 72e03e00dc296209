package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/loopdocs/docdesk/internal/tracing"
)

// WithLoggingTracing saves the trace ID and request ID to the request
// context, so the logger can attach them to every log line that follows.
func WithLoggingTracing(config tracing.Config) gin.HandlerFunc {
	traceHeader := config.TraceHeader
	if traceHeader == "" {
		traceHeader = "X-Trace-Id"
	}

	requestHeader := config.RequestHeader
	if requestHeader == "" {
		requestHeader = "X-Request-Id"
	}

	return func(c *gin.Context) {
		// Use the trace header from the request first.
		traceID := c.GetHeader(traceHeader)
		if traceID == "" {
			traceID = tracing.GenerateTraceID()
		}

		requestID := tracing.GenerateRequestID()
		c.Header(requestHeader, requestID)

		ctx := tracing.WithTraceID(c.Request.Context(), traceID)
		ctx = tracing.WithRequestID(ctx, requestID)
		ctx = tracing.WithOperationName(ctx, fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()))

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
