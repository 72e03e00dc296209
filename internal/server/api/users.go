package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/loopdocs/docdesk/internal/server/biz"
	"github.com/loopdocs/docdesk/internal/server/middleware"
)

type UserHandlersParams struct {
	fx.In

	UserService *biz.UserService
}

func NewUserHandlers(params UserHandlersParams) *UserHandlers {
	return &UserHandlers{
		UserService: params.UserService,
	}
}

type UserHandlers struct {
	UserService *biz.UserService
}

type ListUsersResponse struct {
	Users []biz.UserView `json:"users"`
}

// List returns the members of the active department with their permission
// sets.
func (h *UserHandlers) List(c *gin.Context) {
	views, err := h.UserService.List(c.Request.Context())
	if err != nil {
		JSONError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListUsersResponse{Users: views})
}

type CreateUserRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	FullName string `json:"fullName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Create registers a new user in the active department.
func (h *UserHandlers) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("invalid request format"))
		return
	}

	view, err := h.UserService.Create(c.Request.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		JSONError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// Delete removes a user.
func (h *UserHandlers) Delete(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("invalid user id"))
		return
	}

	if err := h.UserService.Delete(c.Request.Context(), userID); err != nil {
		JSONError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
