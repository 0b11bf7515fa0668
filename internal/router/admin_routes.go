package router

import (
	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/handler"
	"github.com/soragemix/soragemix/internal/middleware"
	"github.com/soragemix/soragemix/internal/repository"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Users     *handler.AdminUserHandler
	Roles     *handler.AdminRoleHandler
	Tools     *handler.AdminToolHandler
	Config    *handler.AdminConfigHandler
	Dashboard *handler.AdminDashboardHandler
}

// RegisterAdmin mounts the admin surface. The role claim check is a
// cheap first gate; RequireAdmin then re-reads the caller's role from
// the database on every request, so a demoted admin loses access
// immediately rather than when their token expires.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, users *repository.UserRepo, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("admin"),
		middleware.RequireAdmin(users),
	)

	g.GET("/dashboard", h.Dashboard.Dashboard)
	g.GET("/images", h.Dashboard.ListImages)

	g.GET("/users", h.Users.List)
	g.POST("/users", h.Users.Create)
	g.GET("/users/:id", h.Users.Get)
	g.PUT("/users/:id", h.Users.Update)
	g.PUT("/users/:id/role", h.Users.UpdateRole)
	g.PUT("/users/:id/quota", h.Users.UpdateQuota)
	g.PUT("/users/:id/password", h.Users.ResetPassword)
	g.DELETE("/users/:id", h.Users.Delete)

	g.GET("/roles", h.Roles.List)
	g.POST("/roles", h.Roles.Create)
	g.GET("/roles/:id", h.Roles.Get)
	g.PUT("/roles/:id", h.Roles.Update)
	g.PUT("/roles/:id/tools", h.Roles.AssignTools)
	g.DELETE("/roles/:id", h.Roles.Delete)

	g.GET("/tools", h.Tools.List)
	g.POST("/tools", h.Tools.Create)
	g.GET("/tools/:id", h.Tools.Get)
	g.PUT("/tools/:id", h.Tools.Update)
	g.PUT("/tools/:id/toggle", h.Tools.Toggle)
	g.DELETE("/tools/:id", h.Tools.Delete)

	g.GET("/config", h.Config.List)
	// The api-key routes are registered before the generic :key routes so
	// Echo matches the literal segment first.
	g.PUT("/config/api-key", h.Config.UpdateAPIKey)
	g.GET("/config/api-key/status", h.Config.APIKeyStatus)
	g.PUT("/config/:key", h.Config.Set)
	g.DELETE("/config/:key", h.Config.Delete)
}
