package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/server/biz"
)

// extractBearerToken pulls the bearer token from the Authorization header.
func extractBearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", fmt.Errorf("missing authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("authorization header must be a bearer token")
	}

	return token, nil
}

// WithJWTAuth authenticates the request's bearer token and stores the
// acting session in the request context. Must run after WithDepartment so
// the session is scoped to the active department view.
func WithJWTAuth(auth *biz.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, err)
			return
		}

		ctx := c.Request.Context()

		user, err := auth.AuthenticateJWTToken(ctx, token)
		if err != nil {
			if errors.Is(err, biz.ErrInvalidJWT) {
				AbortWithError(c, http.StatusUnauthorized, fmt.Errorf("invalid token"))
			} else {
				AbortWithError(c, http.StatusInternalServerError, fmt.Errorf("failed to validate token"))
			}

			return
		}

		department := ""
		if dept, ok := contexts.GetDepartment(ctx); ok {
			department = dept.Acronym
		}

		session, err := auth.Session(ctx, user, department)
		if err != nil {
			AbortWithError(c, http.StatusInternalServerError, fmt.Errorf("failed to build session"))
			return
		}

		c.Request = c.Request.WithContext(contexts.WithSession(ctx, session))
		c.Next()
	}
}
