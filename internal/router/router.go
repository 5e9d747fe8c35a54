package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hms-console/internal/console"
	"github.com/jwalitptl/hms-console/internal/handler/auth"
	"github.com/jwalitptl/hms-console/internal/handler/dashboard"
	"github.com/jwalitptl/hms-console/internal/handler/health"
	"github.com/jwalitptl/hms-console/internal/handler/records"
	"github.com/jwalitptl/hms-console/internal/middleware"
	"github.com/jwalitptl/hms-console/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Cookie         middleware.ConsoleCookieConfig
	CORSOrigins    []string
	RateLimit      bool
	RateRPS        rate.Limit
	RateBurst      int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	// MetricsPath mounts the metrics endpoint when non-empty.
	MetricsPath string
	Release     bool
}

type Router struct {
	engine     *gin.Engine
	registry   *console.Registry
	authH      *auth.Handler
	dashboardH Handler
	recordsH   Handler
	healthH    *health.Handler
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	config     RouterConfig
}

func NewRouter(
	registry *console.Registry,
	authH *auth.Handler,
	dashboardH *dashboard.Handler,
	recordsH *records.Handler,
	healthH *health.Handler,
	logger zerolog.Logger,
	m *metrics.Metrics,
	config RouterConfig,
) *Router {
	if config.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	r := &Router{
		engine:     engine,
		registry:   registry,
		authH:      authH,
		dashboardH: dashboardH,
		recordsH:   recordsH,
		healthH:    healthH,
		logger:     logger,
		metrics:    m,
		config:     config,
	}

	// request id first so every later middleware logs with it
	engine.Use(
		middleware.RequestID(logger),
		middleware.Logger(m),
		middleware.Recovery(),
		middleware.ErrorHandler(),
		middleware.Validation(middleware.DefaultValidationConfig()),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig(config.Cookie.Secure)),
		middleware.CORS(middleware.DefaultCORSConfig(config.CORSOrigins)),
		middleware.SizeLimit(middleware.DefaultSizeLimitConfig(config.MaxBodyBytes)),
	)

	return r
}

// Setup registers validators and every route.
func (r *Router) Setup() error {
	if err := middleware.RegisterValidators(middleware.DefaultValidationConfig()); err != nil {
		return err
	}

	root := r.engine.Group("")

	// Health and metrics carry no console
	r.healthH.RegisterRoutes(root)
	if r.config.MetricsPath != "" {
		root.GET(r.config.MetricsPath, r.healthH.MetricsHandler())
	}

	app := root.Group("", middleware.ConsoleCookie(r.config.Cookie), middleware.Console(r.registry))

	var limit []gin.HandlerFunc
	if r.config.RateLimit {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  r.config.RateRPS,
			Burst: r.config.RateBurst,
		})
		limit = append(limit, limiter.RateLimit())
	}
	r.authH.RegisterRoutes(app, limit...)

	// Protected routes, each with its own allowed roles
	r.dashboardH.RegisterRoutes(app)
	r.recordsH.RegisterRoutes(app)

	return nil
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
