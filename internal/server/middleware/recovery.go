package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loopdocs/docdesk/internal/log"
)

// Recovery converts panics into 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error(c.Request.Context(), "panic recovered", log.Any("panic", r))

				AbortWithError(c, http.StatusInternalServerError, fmt.Errorf("internal server error"))
			}
		}()

		c.Next()
	}
}
