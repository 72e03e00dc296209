package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/store"
)

// WithDepartment resolves the department header into the active department
// of the request. Requests without the header proceed without one;
// operations that need a department reject them downstream.
func WithDepartment(st *store.Store, header string) gin.HandlerFunc {
	if header == "" {
		header = "X-Department"
	}

	return func(c *gin.Context) {
		acronym := c.GetHeader(header)
		if acronym == "" {
			c.Next()
			return
		}

		dept, err := st.GetDepartmentByAcronym(c.Request.Context(), acronym)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				AbortWithError(c, http.StatusBadRequest, fmt.Errorf("unknown department %q", acronym))
			} else {
				AbortWithError(c, http.StatusInternalServerError, fmt.Errorf("failed to resolve department"))
			}

			return
		}

		ctx := contexts.WithDepartment(c.Request.Context(), &contexts.Department{
			ID:      strconv.FormatInt(dept.ID, 10),
			Acronym: dept.Acronym,
			Name:    dept.Name,
		})

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
