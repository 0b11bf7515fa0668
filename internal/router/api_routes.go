package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/soragemix/soragemix/internal/config"
	"github.com/soragemix/soragemix/internal/handler"
	"github.com/soragemix/soragemix/internal/middleware"
)

// RegisterTools registers the user-facing tool endpoints under /v1.  All
// routes require a valid JWT; the listing is scoped to the caller's role
// inside the handler.  Listings are cached in Redis keyed by role so one
// role's tool set is never served to another.
func RegisterTools(e *echo.Echo, h *handler.ToolHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1/tools", middleware.JWTAuth(jwtSecret))

	cacheCfg.KeyStrategy = "role_route"
	cached := middleware.NewRedisCache(cacheCfg, rdb)
	g.GET("", h.List, cached)
	g.GET("/:id/config", h.GetConfig, cached)

	// Prompt preview is a dry-run of the builder; never cached.
	g.POST("/build-prompt", h.BuildPrompt)
}

// RegisterImages registers generation and the image library under /v1.
// Generation carries the token-bucket rate limiter, because every
// allowed request can turn into a paid upstream call, plus the multipart
// upload decoder for the image edit modes.
func RegisterImages(e *echo.Echo, h *handler.ImageHandler, jwtSecret string, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/images", middleware.JWTAuth(jwtSecret))

	g.POST("/generate", h.Generate,
		middleware.NewTokenBucket(rlCfg, rdb),
		middleware.DecodeUploads(),
	)
	g.GET("", h.List)
	g.GET("/search", h.Search)
	g.GET("/stats", h.Stats)
	g.GET("/:id", h.Get)
	g.GET("/:id/download", h.Download)
	g.DELETE("/:id", h.Delete)
}
