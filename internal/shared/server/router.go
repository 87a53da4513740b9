package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fundingsense-backend/internal/analyses"
	"fundingsense-backend/internal/chat"
	"fundingsense-backend/internal/services/health"
	"fundingsense-backend/internal/shared/config"
	"fundingsense-backend/internal/shared/metrics"
	"fundingsense-backend/internal/shared/server/middleware"
	"fundingsense-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers mounted under /api/v1.
type RouterDeps struct {
	Config   config.Config
	Analyses *analyses.Handler
	Chat     *chat.Handler
	Health   *health.Service
	Limiter  *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity(),
		middleware.RateLimit(rateLimitConfig(deps.Config, deps.Limiter)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		respond.OK(c, deps.Health.Status())
	})
	if deps.Analyses != nil {
		deps.Analyses.RegisterRoutes(api)
	}
	if deps.Chat != nil {
		deps.Chat.RegisterRoutes(api)
	}

	r.NoRoute(func(c *gin.Context) {
		respond.Error(c, http.StatusNotFound, "not_found", "route not found", nil)
	})
	return r
}

// Writes run the pipeline and are limited at the configured rate; reads get
// five times the budget.
func rateLimitConfig(cfg config.Config, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "READ",
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost {
				return "WRITE"
			}
			return "READ"
		},
		Limiter: limiter,
		Rules: map[string]middleware.RateLimitRule{
			"WRITE": {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			"READ":  {Rate: cfg.RateLimitRPS * 5, Burst: cfg.RateLimitBurst * 5},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
