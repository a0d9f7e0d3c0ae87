package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/http/dto"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const uuidPattern = `^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`

func init() {
	gin.SetMode(gin.TestMode)
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// logLines decodes every JSON log line in buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}

		var line map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}

	return lines
}

func TestIDMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		fromGin    func(*gin.Context) string
		fromCtx    func(*gin.Context) string
	}{
		{
			name:       "request id",
			middleware: RequestID(),
			header:     HeaderRequestID,
			fromGin:    GetRequestID,
			fromCtx:    func(c *gin.Context) string { return logging.RequestID(c.Request.Context()) },
		},
		{
			name:       "correlation id",
			middleware: CorrelationID(),
			header:     HeaderCorrelationID,
			fromGin:    GetCorrelationID,
			fromCtx:    func(c *gin.Context) string { return logging.CorrelationID(c.Request.Context()) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" propagated", func(t *testing.T) {
			var ginID, ctxID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				ginID, ctxID = tt.fromGin(c), tt.fromCtx(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(tt.header, "caller-id")
			router.ServeHTTP(w, req)

			assert.Equal(t, "caller-id", ginID)
			assert.Equal(t, "caller-id", ctxID)
			assert.Equal(t, "caller-id", w.Header().Get(tt.header))
		})

		t.Run(tt.name+" generated", func(t *testing.T) {
			var ginID string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/test", func(c *gin.Context) {
				ginID = tt.fromGin(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Regexp(t, uuidPattern, ginID)
			assert.Equal(t, ginID, w.Header().Get(tt.header))
		})
	}
}

func TestGetIDsOutsideMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestLogging(t *testing.T) {
	logger, buf := bufferLogger()

	router := gin.New()
	router.Use(ContextLogger(logger), RequestID(), Logging("/skip"))
	router.GET("/api/v1/quotes", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	router.GET("/api/v1/quotes/last", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/api/v1/boom", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/-/live", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/skip", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/quotes?category=life", "/api/v1/quotes/last", "/api/v1/boom", "/-/live", "/skip"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(HeaderRequestID, "req-1")
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := logLines(t, buf)
	require.Len(t, lines, 3)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "/api/v1/quotes", lines[0]["path"])
	assert.Equal(t, "category=life", lines[0]["query"])
	assert.Equal(t, "req-1", lines[0]["request_id"])
	assert.InDelta(t, http.StatusOK, lines[0]["status"], 0)

	assert.Equal(t, "WARN", lines[1]["level"])
	assert.Equal(t, "ERROR", lines[2]["level"])
}

func TestRecovery(t *testing.T) {
	logger, buf := bufferLogger()

	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)

	lines := logLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "panic recovered", lines[0]["msg"])
	assert.Equal(t, "kaboom", lines[0]["error"])
	assert.Contains(t, lines[0]["stack"], "goroutine")
}

func TestRecovery_UsesContextLogger(t *testing.T) {
	base, baseBuf := bufferLogger()
	ctxLogger, ctxBuf := bufferLogger()

	router := gin.New()
	router.Use(ContextLogger(ctxLogger), Recovery(base))
	router.GET("/panic", func(*gin.Context) { panic("kaboom") })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Empty(t, baseBuf.String())
	assert.Contains(t, ctxBuf.String(), "panic recovered")
}

func TestTimeout_SetsDeadline(t *testing.T) {
	var hasDeadline bool

	router := gin.New()
	router.Use(Timeout(time.Second))
	router.GET("/test", func(c *gin.Context) {
		_, hasDeadline = c.Request.Context().Deadline()
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, hasDeadline)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimeout_RespondsWhenHandlerGivesUp(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(5 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrorCodeTimeout)
}

func TestTimeout_KeepsWrittenResponse(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(5 * time.Millisecond))
	router.GET("/late", func(c *gin.Context) {
		<-c.Request.Context().Done()
		c.String(http.StatusOK, "late but written")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "late but written", w.Body.String())
}

func TestContextLogger(t *testing.T) {
	logger, _ := bufferLogger()

	var found bool

	router := gin.New()
	router.Use(ContextLogger(logger))
	router.GET("/test", func(c *gin.Context) {
		_, found = logging.Lookup(c.Request.Context())
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, found)
}
