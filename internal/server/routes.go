package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/loopdocs/docdesk/internal/server/api"
	"github.com/loopdocs/docdesk/internal/server/biz"
	"github.com/loopdocs/docdesk/internal/server/middleware"
	"github.com/loopdocs/docdesk/internal/store"
)

type Handlers struct {
	fx.In

	Auth        *api.AuthHandlers
	Users       *api.UserHandlers
	Permissions *api.PermissionHandlers
}

type Services struct {
	fx.In

	AuthService *biz.AuthService
	Store       *store.Store
}

func SetupRoutes(server *Server, handlers Handlers, services Services) {
	server.Use(middleware.AccessLog())
	server.Use(middleware.WithLoggingTracing(server.Config.Trace))

	if server.Config.CORS.Enabled {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = server.Config.CORS.AllowedOrigins
		corsConfig.AllowMethods = server.Config.CORS.AllowedMethods
		corsConfig.AllowHeaders = server.Config.CORS.AllowedHeaders
		corsConfig.ExposeHeaders = server.Config.CORS.ExposedHeaders
		corsConfig.AllowCredentials = server.Config.CORS.AllowCredentials
		corsConfig.MaxAge = server.Config.CORS.MaxAge

		corsHandler := cors.New(corsConfig)
		server.Use(corsHandler)
		server.OPTIONS("*any", corsHandler)
	}

	// Health check endpoint - no authentication required
	server.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "name": server.Config.Name})
	})

	unsecuredGroup := server.Group(server.Config.BasePath, middleware.WithTimeout(server.Config.RequestTimeout))
	{
		// User Login - DO NOT AUTH
		unsecuredGroup.POST("/auth/signin", handlers.Auth.SignIn)
	}

	// Department resolution must run before JWT auth: the session is scoped
	// to the department view the request targets.
	securedGroup := server.Group(server.Config.BasePath,
		middleware.WithTimeout(server.Config.RequestTimeout),
		middleware.WithDepartment(services.Store, server.Config.DepartmentHeader),
		middleware.WithJWTAuth(services.AuthService),
	)
	{
		securedGroup.GET("/auth/me", handlers.Auth.Me)

		securedGroup.GET("/users", handlers.Users.List)
		securedGroup.POST("/users", handlers.Users.Create)
		securedGroup.DELETE("/users/:id", handlers.Users.Delete)

		securedGroup.GET("/permissions/domain", handlers.Permissions.Domain)
		securedGroup.PUT("/users/:id/permissions", handlers.Permissions.Update)
		securedGroup.PUT("/users/permissions", handlers.Permissions.BatchUpdate)
	}
}
