package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/loopdocs/docdesk/internal/server/biz"
	"github.com/loopdocs/docdesk/internal/server/middleware"
)

type PermissionHandlersParams struct {
	fx.In

	PermissionService *biz.PermissionService
}

func NewPermissionHandlers(params PermissionHandlersParams) *PermissionHandlers {
	return &PermissionHandlers{
		PermissionService: params.PermissionService,
	}
}

type PermissionHandlers struct {
	PermissionService *biz.PermissionService
}

type PermissionDomainResponse struct {
	Codes []string `json:"codes"`
}

// Domain returns the permission codes the acting user may manage in the
// current department view.
func (h *PermissionHandlers) Domain(c *gin.Context) {
	codes, err := h.PermissionService.Domain(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	c.JSON(http.StatusOK, PermissionDomainResponse{Codes: codes})
}

type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions"`
}

// Update replaces a user's full permission set.
func (h *PermissionHandlers) Update(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("invalid user id"))
		return
	}

	var req UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("invalid request format"))
		return
	}

	if err := h.PermissionService.Update(c.Request.Context(), userID, req.Permissions); err != nil {
		JSONError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type BatchUpdatePermissionsRequest struct {
	Updates map[string][]string `json:"updates"`
}

// BatchUpdate replaces several users' permission sets atomically.
func (h *PermissionHandlers) BatchUpdate(c *gin.Context) {
	var req BatchUpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("invalid request format"))
		return
	}

	updates := make(map[int64][]string, len(req.Updates))

	for rawID, codes := range req.Updates {
		userID, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			middleware.AbortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid user id %q", rawID))
			return
		}

		updates[userID] = codes
	}

	if err := h.PermissionService.BatchUpdate(c.Request.Context(), updates); err != nil {
		JSONError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
