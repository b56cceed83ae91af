package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/tasknest/auth-service/internal/auth"
	"github.com/tasknest/auth-service/internal/cache"
	"github.com/tasknest/auth-service/internal/config"
	"github.com/tasknest/auth-service/internal/database"
	"github.com/tasknest/auth-service/internal/health"
	"github.com/tasknest/auth-service/internal/identity"
	"github.com/tasknest/auth-service/internal/password"
	"github.com/tasknest/auth-service/internal/session"
	"github.com/tasknest/auth-service/internal/token"
	"github.com/tasknest/auth-service/internal/web"
	"github.com/tasknest/auth-service/internal/web/handler"
	"github.com/tasknest/auth-service/internal/web/middleware"
)

type Container struct {
	Config      config.Config
	Logger      *slog.Logger
	Database    *database.Database
	Cache       *cache.Service
	RateLimiter middleware.RateLimiter
	AuthService *auth.Service
	HttpServer  *http.Server
}

func New(ctx context.Context) (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Logger
	logLevel := slog.LevelDebug
	if cfg.Server.IsProduction() {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	// Data sources
	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	cacheService, err := cache.NewService(cfg.Redis, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	// Stores
	userStore := identity.NewPostgresStore(&db)
	if err := userStore.EnsureSchema(ctx); err != nil {
		cacheService.Close()
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	// Domain services
	sessionManager := session.NewManager(cacheService, logger, cfg.Token.RefreshTTL)
	tokenIssuer := token.NewIssuer([]byte(cfg.Token.Secret), cfg.Token.AccessTTL)
	hasher := password.NewHasher(cfg.Password.BcryptCost)
	authService := auth.NewService(userStore, sessionManager, tokenIssuer, hasher, logger)
	checker := health.NewChecker(&db, cacheService, logger)

	// Listeners
	rateLimiter := middleware.NewInMemoryRateLimiter()
	authHandler := handler.NewAuthHandler(authService, logger)
	healthHandler := handler.NewHealthHandler(checker, logger)

	httpHandler := web.NewHandler(&cfg, logger, tokenIssuer, rateLimiter, authHandler, healthHandler)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Database:    &db,
		Cache:       cacheService,
		RateLimiter: rateLimiter,
		AuthService: authService,
		HttpServer:  httpServer,
	}, nil
}

// Close releases every held resource in reverse wiring order.
func (c *Container) Close() {
	if c.RateLimiter != nil {
		c.RateLimiter.Close()
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Logger.Error("Closing redis client failed", "error", err)
		}
	}
	if c.Database != nil {
		c.Database.Close()
	}
}
