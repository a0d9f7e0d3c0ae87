package telemetry

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotesync/telemetry"

	// TraceIDHeader echoes the request's trace ID back to the caller.
	TraceIDHeader = "X-Trace-ID"

	// unmatchedRoute labels requests no route handled, so stray paths do not
	// each get their own series.
	unmatchedRoute = "unmatched"
)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// MeterProvider defaults to the global provider.
	MeterProvider metric.MeterProvider

	// SkipPrefixes are path prefixes that get no metrics, such as the
	// internal /-/ routes polled by the orchestrator.
	SkipPrefixes []string
}

// Metrics holds the quote API's request instruments.
type Metrics struct {
	duration metric.Float64Histogram
	requests metric.Int64Counter
	inFlight metric.Int64UpDownCounter
}

// NewMetrics creates the request instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter(instrumentationName)

	duration, err := meter.Float64Histogram("quotesync.http.request.duration",
		metric.WithDescription("Quote API request duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	requests, err := meter.Int64Counter("quotesync.http.requests",
		metric.WithDescription("Quote API requests by route and status class"))
	if err != nil {
		return nil, err
	}

	inFlight, err := meter.Int64UpDownCounter("quotesync.http.requests.in_flight",
		metric.WithDescription("Quote API requests being served"))
	if err != nil {
		return nil, err
	}

	return &Metrics{duration: duration, requests: requests, inFlight: inFlight}, nil
}

// Middleware records request metrics and sets X-Trace-ID when the request is
// traced. TracingMiddleware must run before it.
func Middleware(cfg MiddlewareConfig) gin.HandlerFunc {
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	metrics, err := NewMetrics(mp)
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		skip := metrics == nil || hasAnyPrefix(c.Request.URL.Path, cfg.SkipPrefixes)

		var start time.Time

		if !skip {
			start = time.Now()
			metrics.inFlight.Add(c.Request.Context(), 1, metric.WithAttributes(routeAttr(c)))
		}

		c.Next()

		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			c.Header(TraceIDHeader, sc.TraceID().String())
		}

		if skip {
			return
		}

		ctx := c.Request.Context()
		route := routeAttr(c)
		attrs := metric.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			route,
			attribute.String("http.response.status_class", statusClass(c.Writer.Status())),
		)

		metrics.inFlight.Add(ctx, -1, metric.WithAttributes(route))
		metrics.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		metrics.requests.Add(ctx, 1, attrs)
	}
}

// TracingMiddleware returns the otelgin tracing middleware.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

func routeAttr(c *gin.Context) attribute.KeyValue {
	route := c.FullPath()
	if route == "" {
		route = unmatchedRoute
	}

	return attribute.String("http.route", route)
}

// statusClass turns 404 into "4xx".
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "other"
	}

	return strconv.Itoa(status/100) + "xx"
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
