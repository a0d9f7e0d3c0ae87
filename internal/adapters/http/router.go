package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotesync/internal/platform/telemetry"
)

// DefaultRequestTimeout is the default timeout for API requests.
const DefaultRequestTimeout = 30 * time.Second

// APIPrefix is the route group of the public API.
const APIPrefix = "/api/v1"

// InternalPrefix holds the health, build and metrics routes.
const InternalPrefix = "/-/"

// RouterConfig contains configuration for setting up the router.
type RouterConfig struct {
	// Logger is the base request logger.
	Logger *slog.Logger

	// ServiceName names the tracing spans.
	ServiceName string

	Quotes *handlers.QuoteHandler
	Sync   *handlers.SyncHandler
	Health *handlers.HealthHandler

	// Timeout bounds each API request. Zero disables it.
	Timeout time.Duration
}

// SetupRouter configures all routes and middleware on the Gin engine.
// Middleware runs in this order:
//  1. Recovery
//  2. Context logger
//  3. Request ID, then correlation ID
//  4. OpenTelemetry tracing, then HTTP metrics (skips /-/ routes)
//  5. Request logging (skips /-/ routes)
//
// Internal routes live under /-/ and the quote API under /api/v1, which also
// gets the request timeout.
func SetupRouter(engine *gin.Engine, cfg RouterConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	engine.HandleMethodNotAllowed = true
	engine.NoRoute(noRoute)
	engine.NoMethod(noMethod)

	engine.Use(
		middleware.Recovery(logger),
		middleware.ContextLogger(logger),
		middleware.RequestID(),
		middleware.CorrelationID(),
		telemetry.TracingMiddleware(cfg.ServiceName),
		telemetry.Middleware(telemetry.MiddlewareConfig{SkipPrefixes: []string{InternalPrefix}}),
		middleware.Logging(),
	)

	if cfg.Health != nil {
		cfg.Health.RegisterHealthRoutesOnEngine(engine)
	}

	api := engine.Group(APIPrefix)
	if cfg.Timeout > 0 {
		api.Use(middleware.Timeout(cfg.Timeout))
	}

	if cfg.Quotes != nil {
		cfg.Quotes.RegisterQuoteRoutes(api)
	}

	if cfg.Sync != nil {
		cfg.Sync.RegisterSyncRoutes(api)
	}
}
