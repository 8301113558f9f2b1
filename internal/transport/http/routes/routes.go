package routes

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mlinyun/user-center/internal/infra/config"
	"github.com/mlinyun/user-center/internal/transport/http/handlers"
	"github.com/mlinyun/user-center/internal/transport/http/middleware"
	"github.com/mlinyun/user-center/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Registration *usecase.RegistrationService
	Auth         *usecase.AuthService
	Users        *usecase.UserService
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

type pingAdapter func(ctx context.Context) error

func (p pingAdapter) Ping(ctx context.Context) error { return p(ctx) }

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))

	if metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{}); err == nil {
		r.Use(metrics.Handler())
	} else {
		deps.Logger.Warn("failed to register http metrics", zap.Error(err))
	}

	r.Use(middleware.Session(middleware.SessionConfig{
		CookieName: deps.Config.Session.CookieName,
		TTL:        deps.Config.Session.TTL,
		Secure:     deps.Config.Session.CookieSecure,
	}))

	readiness := make(map[string]handlers.Pinger, 2)
	if deps.Database != nil {
		readiness["database"] = deps.Database
	}
	if deps.Cache != nil {
		readiness["redis"] = pingAdapter(deps.Cache.HealthCheck)
	}
	healthHandler := handlers.NewHealthHandler(readiness)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.Config.Upload.Dir != "" {
		r.Static(deps.Config.Upload.BaseURL, deps.Config.Upload.Dir)
	}

	api := r.Group("/api/v1")
	{
		userGroup := api.Group("/user")
		userHandler := handlers.NewUserHandler(deps.Services.Registration, deps.Services.Auth, deps.Services.Users)
		userHandler.RegisterRoutes(userGroup, registerLimit(deps), loginLimit(deps))

		fileHandler := handlers.NewFileHandler(deps.Services.Auth, deps.Services.Users, deps.Logger, handlers.FileHandlerConfig{
			Dir:        deps.Config.Upload.Dir,
			BaseURL:    deps.Config.Upload.BaseURL,
			MaxBytes:   deps.Config.Upload.MaxSizeMB << 20,
			Extensions: splitExtensions(deps.Config.Upload.Extensions),
		})
		fileHandler.RegisterRoutes(userGroup)

		adminGroup := api.Group("/admin")
		adminHandler := handlers.NewAdminHandler(deps.Services.Auth, deps.Services.Users)
		adminHandler.RegisterRoutes(adminGroup)
	}

	return r
}

func loginLimit(deps Dependencies) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config.RateLimit.LoginMaxAttempts <= 0 {
		return nil
	}
	return deps.RateLimiter.Limit(middleware.RateLimitRule{
		Name:   "login",
		Limit:  deps.Config.RateLimit.LoginMaxAttempts,
		Window: windowOrDefault(deps.Config.RateLimit.WindowDuration),
	})
}

func registerLimit(deps Dependencies) gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config.RateLimit.RegisterMaxAttempts <= 0 {
		return nil
	}
	return deps.RateLimiter.Limit(middleware.RateLimitRule{
		Name:   "register",
		Limit:  deps.Config.RateLimit.RegisterMaxAttempts,
		Window: windowOrDefault(deps.Config.RateLimit.WindowDuration),
	})
}

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return time.Minute
	}
	return window
}

func splitExtensions(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
