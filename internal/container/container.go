package container

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/careconnect/portal-api/app/db"
	appMiddleware "github.com/careconnect/portal-api/app/middleware"
	"github.com/careconnect/portal-api/config"
	"github.com/careconnect/portal-api/internal/api/auth"
	"github.com/careconnect/portal-api/internal/api/health"
	"github.com/careconnect/portal-api/internal/api/user"
	"github.com/careconnect/portal-api/internal/rolegate"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool
	Redis  *redis.Client

	AuthHandler   *auth.HandlerImpl
	UserHandler   *user.HandlerImpl
	HealthHandler *health.HandlerImpl

	Authenticate func(http.Handler) http.Handler
	RateLimit    func(http.Handler) http.Handler

	tokens   *auth.TokenService
	authRepo auth.AuthRepo
}

// NewContainer initializes the dependency graph: pool, optional redis,
// repositories, services, middleware, handlers.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		return nil, err
	}

	var rdb *redis.Client
	if cfg.Repositories.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Repositories.Redis.Addr,
			Password: cfg.Repositories.Redis.Password,
			DB:       cfg.Repositories.Redis.DB,
		})
	}

	tokens := auth.NewTokenService(cfg.JWT)
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, tokens, logger)
	authHandler := auth.NewHandlerImpl(authService, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, logger)
	userHandler := user.NewHandlerImpl(userService, logger)

	healthHandler := health.NewHandlerImpl(pool, cfg.Mode, logger)

	return &Container{
		Config:        cfg,
		Logger:        logger,
		Pool:          pool,
		Redis:         rdb,
		AuthHandler:   authHandler,
		UserHandler:   userHandler,
		HealthHandler: healthHandler,
		Authenticate:  auth.Authenticate(logger, tokens, authRepo),
		RateLimit:     appMiddleware.RateLimit(cfg.RateLimit, rdb, logger),
		tokens:        tokens,
		authRepo:      authRepo,
	}, nil
}

// RequireRoles builds the role middleware for a gate from the shared
// allow-list table.
func (c *Container) RequireRoles(gate rolegate.Gate) func(http.Handler) http.Handler {
	return auth.RequireRole(c.Logger, rolegate.AllowedRoles(gate)...)
}

// Close releases all resources held by the container.
func (c *Container) Close(ctx context.Context) {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.WarnContext(ctx, "Failed to close redis client", slog.Any("error", err))
		}
	}
}
