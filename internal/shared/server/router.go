package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobapplier-backend/internal/artifacts"
	"jobapplier-backend/internal/documents"
	"jobapplier-backend/internal/services/health"
	"jobapplier-backend/internal/shared/config"
	"jobapplier-backend/internal/shared/metrics"
	"jobapplier-backend/internal/shared/server/middleware"
	"jobapplier-backend/internal/targets"
)

// RouterDeps carries the handlers mounted on the router.
type RouterDeps struct {
	Config          config.Config
	Health          *health.Service
	DocumentHandler *documents.Handler
	TargetHandler   *targets.Handler
	ArtifactHandler *artifacts.Handler
	RateLimiter     *middleware.RateLimiter
}

// Rate limit groups. Document polling is cheap and frequent; generation calls
// a paid provider.
var rateLimitRules = map[string]middleware.RateLimitRule{
	middleware.GroupDefault:    {Rate: 5, Burst: 20},
	middleware.GroupPolling:    {Rate: 10, Burst: 30},
	middleware.GroupGeneration: {Rate: 0.2, Burst: 3},
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
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			c.JSON(http.StatusOK, gin.H{"ok": true})
			return
		}
		c.JSON(http.StatusOK, deps.Health.Status())
	})

	authed := api.Group("")
	authed.Use(
		middleware.Auth(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rateLimitRules,
			DefaultGroup: middleware.GroupDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.RateLimiter,
		}),
	)
	registerMeRoutes(authed)
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(authed)
	}
	if deps.TargetHandler != nil {
		deps.TargetHandler.RegisterRoutes(authed)
	}
	if deps.ArtifactHandler != nil {
		deps.ArtifactHandler.RegisterRoutes(authed)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	switch {
	case c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/documents/:id":
		return middleware.GroupPolling
	case c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/artifacts":
		return middleware.GroupGeneration
	default:
		return middleware.GroupDefault
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
