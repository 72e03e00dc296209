package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/loopdocs/docdesk/internal/contexts"
	"github.com/loopdocs/docdesk/internal/server/biz"
	"github.com/loopdocs/docdesk/internal/server/middleware"
)

type AuthHandlersParams struct {
	fx.In

	AuthService *biz.AuthService
}

func NewAuthHandlers(params AuthHandlersParams) *AuthHandlers {
	return &AuthHandlers{
		AuthService: params.AuthService,
	}
}

type AuthHandlers struct {
	AuthService *biz.AuthService
}

type SignInRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignInResponse struct {
	User  biz.UserView `json:"user"`
	Token string       `json:"token"`
}

// SignIn authenticates with email and password and issues a session token.
func (h *AuthHandlers) SignIn(c *gin.Context) {
	var (
		ctx = c.Request.Context()
		req SignInRequest
	)

	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, errors.New("invalid request format"))
		return
	}

	user, err := h.AuthService.AuthenticateUser(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, biz.ErrInvalidPassword) {
			middleware.AbortWithError(c, http.StatusUnauthorized, errors.New("invalid email or password"))
			return
		}

		JSONError(c, err)

		return
	}

	token, err := h.AuthService.GenerateJWTToken(ctx, user)
	if err != nil {
		JSONError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignInResponse{
		User:  biz.ConvertUserToView(user, nil),
		Token: token,
	})
}

type MeResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
}

// Me returns the acting session as scoped by the department header.
func (h *AuthHandlers) Me(c *gin.Context) {
	session, ok := contexts.GetSession(c.Request.Context())
	if !ok {
		JSONError(c, biz.ErrUnauthenticated)
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		ID:          session.UserID,
		Email:       session.Email,
		Permissions: session.Permissions,
	})
}
