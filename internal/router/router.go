package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BorcilaVasile/medical-appointment-api/internal/middleware"
	"github.com/BorcilaVasile/medical-appointment-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// PublicHandler additionally exposes routes that do not require authentication.
type PublicHandler interface {
	Handler
	RegisterPublicRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORS           middleware.CORSConfig
	RequestTimeout time.Duration
}

type Router struct {
	engine         *gin.Engine
	auth           *middleware.AuthMiddleware
	appointmentH   PublicHandler
	unavailablityH Handler
	healthH        Handler
	metrics        *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	appointmentH PublicHandler,
	unavailabilityH Handler,
	healthH Handler,
	m *metrics.Metrics,
	cfg Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:         engine,
		auth:           auth,
		appointmentH:   appointmentH,
		unavailablityH: unavailabilityH,
		healthH:        healthH,
		metrics:        m,
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	engine.Use(
		gin.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		r.metricsMiddleware(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.RequestTimeout}),
		middleware.RequestID(),
	)
	engine.Use(middleware.CORS(cfg.CORS))

	if cfg.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   cfg.RateLimitRPS,
			Burst: cfg.RateLimitBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	engine.NoRoute(middleware.NoRoute())

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)

	// Availability is readable without a token so patients can browse
	// before signing in.
	r.appointmentH.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.appointmentH.RegisterRoutes(protected)
	r.unavailablityH.RegisterRoutes(protected)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		r.metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}
