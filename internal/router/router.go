package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/soragemix/soragemix/internal/handler"    // import the handlers that implement business logic
	"github.com/soragemix/soragemix/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterStatic serves generated images from disk under the same URL
// prefix stored in each image row, so image_url values resolve directly.
func RegisterStatic(e *echo.Echo, urlPrefix, dir string) {
	e.Static(urlPrefix, dir)
}

// RegisterAuth registers all authentication-related routes and applies
// the necessary middleware.  Unauthenticated operations live under
// /v1/auth, while the profile endpoint lives under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Operations that do not require an existing session: register, login
	// and refresh.  Each handler generates or exchanges tokens itself.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token: the presented token is revoked
	// and a new pair is issued.
	g.POST("/refresh", a.Refresh)
	// Logout does not require JWT authentication.  The handler accepts a
	// JSON body containing a `refresh_token` and invalidates that token;
	// with a bearer token and no body token, every session is revoked.
	g.POST("/logout", a.Logout)

	// Self-service account endpoints require a valid access token: read
	// and update the own profile, change the password and delete the
	// account.
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	auth.PUT("/me", a.UpdateMe)
	auth.DELETE("/me", a.DeleteMe)
	auth.POST("/change-password", a.ChangePassword)

	// Additionally map POST /v1/logout to the same handler so clients can
	// call either path with a refresh token in the body.
	e.POST("/v1/logout", a.Logout)
}
