package middleware

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON error envelope of every API failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AbortWithError aborts the request with a JSON error response and records
// the error on the gin context for access logging.
func AbortWithError(c *gin.Context, status int, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}
