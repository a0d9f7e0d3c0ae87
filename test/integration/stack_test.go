//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	httpadapter "github.com/jsamuelsen/quotesync/internal/adapters/http"
	"github.com/jsamuelsen/quotesync/internal/adapters/http/handlers"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/sqlite"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// post is a record served by the stub posts resource.
type post struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// postsStub is an in-process posts resource. Handlers can be paused with
// hold to keep a sync in flight.
type postsStub struct {
	server *httptest.Server

	mu      sync.Mutex
	posts   []post
	created []post
	status  int
	hold    chan struct{}
}

func newPostsStub(t *testing.T) *postsStub {
	t.Helper()

	s := &postsStub{status: http.StatusOK}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.server.Close)

	return s
}

func (s *postsStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hold := s.hold
	status := s.status
	s.mu.Unlock()

	if hold != nil && r.Method == http.MethodGet {
		<-hold
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		s.mu.Lock()
		data, _ := json.Marshal(s.posts)
		s.mu.Unlock()
		_, _ = w.Write(data)

	case http.MethodPost:
		var p post
		_ = json.NewDecoder(r.Body).Decode(&p)

		s.mu.Lock()
		p.ID = 101 + len(s.created)
		s.created = append(s.created, p)
		s.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(p)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// publish replaces the served posts with one post per title.
func (s *postsStub) publish(titles ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = s.posts[:0]
	for i, title := range titles {
		s.posts = append(s.posts, post{ID: i + 1, UserID: 1, Title: title, Body: "body"})
	}
}

func (s *postsStub) failWith(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// pause blocks fetches until the returned release func is called.
func (s *postsStub) pause() (release func()) {
	ch := make(chan struct{})

	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()

	var once sync.Once

	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *postsStub) createdPosts() []post {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]post(nil), s.created...)
}

// stack is the full service wired the way serve wires it, minus the process.
type stack struct {
	server *httptest.Server
	remote *postsStub
	store  *sqlite.Store
	coll   *app.QuoteCollection
	syncer *app.Synchronizer
	board  *notify.Board
	dbPath string
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newStack starts the service over a SQLite file at dbPath, or a fresh one
// when dbPath is empty.
func newStack(t *testing.T, remote *postsStub, dbPath string) *stack {
	t.Helper()

	ctx := context.Background()
	logger := discardLogger()

	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "quotesync.db")
	}

	store, err := sqlite.Open(ctx, sqlite.Config{Path: dbPath, Logger: logger})
	require.NoError(t, err)

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     remote.server.URL,
		ServiceName: "posts-api",
		Timeout:     2 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   50,
			Timeout:       time.Second,
			HalfOpenLimit: 1,
		},
		Logger: logger,
	})
	require.NoError(t, err)

	posts := acl.NewPostsClient(acl.PostsClientConfig{Client: httpClient, Logger: logger})

	coll := app.NewQuoteCollection(app.CollectionConfig{
		Store:   store,
		Session: memory.New("session"),
		Remote:  posts,
		Logger:  logger,
	})
	require.NoError(t, coll.Load(ctx))

	board := notify.NewBoard(notify.BoardConfig{TTL: time.Minute, Logger: logger})

	syncer, err := app.NewSynchronizer(app.SynchronizerConfig{
		Collection: coll,
		Remote:     posts,
		Notifier:   board,
		Timeout:    5 * time.Second,
		Logger:     logger,
	})
	require.NoError(t, err)

	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(store))
	require.NoError(t, registry.Register(posts))

	engine := gin.New()
	httpadapter.SetupRouter(engine, httpadapter.RouterConfig{
		Logger:      logger,
		ServiceName: "quotesync-integration",
		Quotes:      handlers.NewQuoteHandler(coll),
		Sync:        handlers.NewSyncHandler(syncer, board),
		Health: handlers.NewHealthHandler(handlers.HealthConfig{
			Registry:  registry,
			BuildInfo: handlers.NewBuildInfo("integration", "none", "now"),
			Gatherer:  prometheus.NewRegistry(),
		}),
		Timeout: 10 * time.Second,
	})

	s := &stack{
		server: httptest.NewServer(engine),
		remote: remote,
		store:  store,
		coll:   coll,
		syncer: syncer,
		board:  board,
		dbPath: dbPath,
	}

	t.Cleanup(func() { s.stop(t) })

	return s
}

// stop shuts the stack down. It is safe to call more than once.
func (s *stack) stop(t *testing.T) {
	t.Helper()

	if s.server == nil {
		return
	}

	s.server.Close()
	s.server = nil

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, s.syncer.Shutdown(ctx))
	require.NoError(t, s.coll.WaitPosts(ctx))
	require.NoError(t, s.store.Close())
}

func (s *stack) url(path string) string {
	return s.server.URL + httpadapter.APIPrefix + path
}
