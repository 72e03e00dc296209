package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loopdocs/docdesk/internal/log"
	"github.com/loopdocs/docdesk/internal/server/biz"
	"github.com/loopdocs/docdesk/internal/server/middleware"
	"github.com/loopdocs/docdesk/internal/store"
)

// JSONError maps service errors onto HTTP statuses and writes the error
// envelope the console client parses.
func JSONError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, biz.ErrUnauthenticated), errors.Is(err, biz.ErrInvalidJWT):
		middleware.AbortWithError(c, http.StatusUnauthorized, err)
	case errors.Is(err, biz.ErrInvalidPassword):
		middleware.AbortWithError(c, http.StatusUnauthorized, err)
	case errors.Is(err, biz.ErrPermissionDenied):
		middleware.AbortWithError(c, http.StatusForbidden, err)
	case errors.Is(err, biz.ErrNoDepartment):
		middleware.AbortWithError(c, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, err)
	default:
		log.Error(c.Request.Context(), "request failed", log.Cause(err))
		middleware.AbortWithError(c, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
