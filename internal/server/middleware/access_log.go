package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/tracing"
)

// AccessLog logs failed requests: status code, method, path and the errors
// the handlers recorded.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		var errMsgs []string
		for _, e := range c.Errors {
			errMsgs = append(errMsgs, e.Error())
		}

		status := c.Writer.Status()
		if status < 400 && len(errMsgs) == 0 {
			return
		}

		ctx := c.Request.Context()

		fields := []log.Field{
			log.Int("status", status),
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.Duration("latency", time.Since(start)),
			log.String("client_ip", c.ClientIP()),
		}

		if opName, ok := tracing.GetOperationName(ctx); ok {
			fields = append(fields, log.String("operation", opName))
		}

		if len(errMsgs) > 0 {
			fields = append(fields, log.Strings("errors", errMsgs))
		}

		log.Error(ctx, "[ACCESS]", fields...)
	}
}
