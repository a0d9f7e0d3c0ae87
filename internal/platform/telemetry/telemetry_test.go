package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeStats struct {
	quotes     int
	categories int
	lastSync   time.Time
}

func (f fakeStats) Len() int            { return f.quotes }
func (f fakeStats) CategoryCount() int  { return f.categories }
func (f fakeStats) LastSync() time.Time { return f.lastSync }

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := New(context.Background(), &Config{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	res, err := newResource(&Config{
		ServiceName: "quotesync",
		Version:     "1.2.3",
		Environment: "test",
		StoreDriver: "redis",
		RemoteName:  "posts-api",
	})
	require.NoError(t, err)

	attrs := make(map[string]string)
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}

	assert.Equal(t, "quotesync", attrs["service.name"])
	assert.Equal(t, "1.2.3", attrs["service.version"])
	assert.Equal(t, "redis", attrs["quotesync.store.driver"])
	assert.Equal(t, "posts-api", attrs["quotesync.remote.name"])

	bare, err := newResource(&Config{ServiceName: "quotesync"})
	require.NoError(t, err)

	_, ok := bare.Set().Value("quotesync.store.driver")
	assert.False(t, ok)
}

func TestRegisterCollectionGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := fakeStats{quotes: 7, categories: 3, lastSync: time.UnixMilli(1_700_000_000_500)}

	require.NoError(t, RegisterCollectionGauges(reg, stats, stats))

	expected := `
# HELP quotesync_quotes Number of quotes in the local collection.
# TYPE quotesync_quotes gauge
quotesync_quotes 7
# HELP quotesync_categories Number of distinct categories in the local collection.
# TYPE quotesync_categories gauge
quotesync_categories 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"quotesync_quotes", "quotesync_categories"))

	count, err := testutil.GatherAndCount(reg, "quotesync_last_sync_timestamp_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterCollectionGauges_Duplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := fakeStats{}

	require.NoError(t, RegisterCollectionGauges(reg, stats, stats))
	require.Error(t, RegisterCollectionGauges(reg, stats, stats))
}

func TestMiddleware_RecordsWithoutTrace(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Middleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get(TraceIDHeader))
}

// requestCounts serves paths through Middleware and returns the request
// counter keyed by route and status class.
func requestCounts(t *testing.T, paths ...string) map[string]int64 {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	r := gin.New()
	r.Use(Middleware(MiddlewareConfig{MeterProvider: mp, SkipPrefixes: []string{"/-/"}}))
	r.GET("/api/v1/quotes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/-/live", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, p := range paths {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := make(map[string]int64)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "quotesync.http.requests" {
				continue
			}

			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)

			for _, dp := range sum.DataPoints {
				route, _ := dp.Attributes.Value("http.route")
				class, _ := dp.Attributes.Value("http.response.status_class")
				counts[route.AsString()+" "+class.AsString()] += dp.Value
			}
		}
	}

	return counts
}

func TestMiddleware_CountsByRouteTemplate(t *testing.T) {
	counts := requestCounts(t, "/api/v1/quotes/1", "/api/v1/quotes/2", "/nope", "/-/live")

	assert.Equal(t, map[string]int64{
		"/api/v1/quotes/:id 2xx": 2,
		"unmatched 4xx":          1,
	}, counts)
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{
		200: "2xx",
		304: "3xx",
		404: "4xx",
		502: "5xx",
		0:   "other",
		700: "other",
	}

	for status, want := range tests {
		assert.Equal(t, want, statusClass(status), status)
	}
}
