package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv" // Loads .env files into the environment
	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/config"   // Internal config loader
	"github.com/soragemix/soragemix/internal/database" // MySQL connection pool
	"github.com/soragemix/soragemix/internal/handler"
	"github.com/soragemix/soragemix/internal/nano" // Gemini image client
	"github.com/soragemix/soragemix/internal/queue"
	"github.com/soragemix/soragemix/internal/repository"
	"github.com/soragemix/soragemix/internal/router" // Internal router setup
	"github.com/soragemix/soragemix/internal/service"
	"github.com/soragemix/soragemix/internal/storage"
)

func main() {
	_ = godotenv.Load() // Load .env if present; real env vars win

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil disables rate limiting and caching

	store, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	// Repositories.
	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	tools := repository.NewToolRepo(db)
	images := repository.NewImageRepo(db)
	tokens := repository.NewTokenRepo(db)
	sysCfg := repository.NewConfigRepo(db)

	// Services.
	keys := service.NewAPIKeyService(sysCfg, cfg.GenAIAPIKey)
	gen := service.NewGenerationService(users, images, tools, store, keys, nano.NewClient())

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, roles, tokens)
	toolH := handler.NewToolHandler(tools, users)
	imageH := handler.NewImageHandler(gen, images, store)
	admin := router.AdminHandlers{
		Users:     handler.NewAdminUserHandler(cfg, users, roles),
		Roles:     handler.NewAdminRoleHandler(roles),
		Tools:     handler.NewAdminToolHandler(tools),
		Config:    handler.NewAdminConfigHandler(sysCfg, keys),
		Dashboard: handler.NewAdminDashboardHandler(users, tools, images),
	}

	e := echo.New() // Create Echo instance
	router.RegisterRoutes(e)
	router.RegisterStatic(e, store.URLPrefix(), store.BaseDir())
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterTools(e, toolH, cfg.JWTSecret, config.LoadCacheConfig(), rdb)
	router.RegisterImages(e, imageH, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)
	router.RegisterAdmin(e, admin, users, cfg.JWTSecret)

	// Consume image.generated events in the background; the consumer
	// reconnects on its own if the broker goes away.
	go func() {
		if err := queue.StartGenerationConsumer(); err != nil {
			log.Printf("queue consumer: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
