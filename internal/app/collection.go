// Package app contains application services that orchestrate use cases.
// It coordinates the quote domain with the local store and the remote
// resource through ports; HTTP and CLI specifics live in adapters.
package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jsamuelsen/quotesync/internal/app/staged"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	// defaultPostTimeout bounds the fire-and-forget remote post of an added quote.
	defaultPostTimeout = 10 * time.Second

	importSource = "import"
	storeSource  = "store"
)

// Preferences are the persisted filter inputs.
type Preferences struct {
	Category string `json:"category"`
	Search   string `json:"search"`
}

// CollectionConfig contains configuration for the quote collection.
type CollectionConfig struct {
	// Store persists the collection, preferences, and last sync time. Required.
	Store ports.KeyValueStore

	// Session holds per-session state (the last viewed quote).
	// Defaults to Store when nil.
	Session ports.KeyValueStore

	// Remote receives a copy of every added quote. Optional.
	Remote ports.QuoteRemote

	// PostTimeout bounds each remote post. Defaults to 10s.
	PostTimeout time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger

	// Intn picks a random index in [0, n). Defaults to math/rand/v2.IntN.
	Intn func(n int) int
}

// QuoteCollection owns the ordered list of quotes. All mutations write
// through to the store; store failures are logged and never surface to callers.
type QuoteCollection struct {
	store       ports.KeyValueStore
	session     ports.KeyValueStore
	remote      ports.QuoteRemote
	postTimeout time.Duration
	logger      *slog.Logger
	intn        func(n int) int

	mu       sync.RWMutex
	quotes   []domain.Quote
	lastSync time.Time

	posts sync.WaitGroup
}

// NewQuoteCollection creates an empty collection. Call Load before use.
// Panics if Store is nil.
func NewQuoteCollection(cfg CollectionConfig) *QuoteCollection {
	if cfg.Store == nil {
		panic("QuoteCollection: Store is required")
	}

	c := &QuoteCollection{
		store:       cfg.Store,
		session:     cfg.Session,
		remote:      cfg.Remote,
		postTimeout: cfg.PostTimeout,
		logger:      cfg.Logger,
		intn:        cfg.Intn,
	}

	if c.session == nil {
		c.session = c.store
	}

	if c.postTimeout <= 0 {
		c.postTimeout = defaultPostTimeout
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With(slog.String("component", "app.QuoteCollection"))

	if c.intn == nil {
		c.intn = rand.IntN
	}

	return c
}

// Load reads the collection and last sync time from the store.
// A missing, unreadable, or empty collection is replaced by the defaults,
// which are saved back.
func (c *QuoteCollection) Load(ctx context.Context) error {
	quotes, lastSync, err := readPair(ctx,
		c.readQuotes,
		c.readLastSync,
	)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSync = lastSync

	if len(quotes) == 0 {
		c.logger.InfoContext(ctx, "seeding default quotes")
		c.quotes = domain.DefaultQuotes()
		c.persistLocked(ctx)

		return nil
	}

	c.quotes = quotes
	c.logger.DebugContext(ctx, "collection loaded", slog.Int("quotes", len(quotes)))

	return nil
}

// readQuotes never fails: every problem means "fall back to defaults".
func (c *QuoteCollection) readQuotes(ctx context.Context) ([]domain.Quote, error) {
	raw, err := c.store.Get(ctx, ports.KeyQuotes)
	if err != nil {
		if !domain.IsNotFound(err) {
			c.logger.WarnContext(ctx, "reading stored quotes failed, using defaults", slog.Any("error", err))
		}

		return nil, nil
	}

	quotes, err := domain.DecodeQuotes(storeSource, []byte(raw))
	if err != nil {
		c.logger.WarnContext(ctx, "stored quotes unreadable, using defaults", slog.Any("error", err))

		return nil, nil
	}

	return quotes, nil
}

func (c *QuoteCollection) readLastSync(ctx context.Context) (time.Time, error) {
	raw, err := c.store.Get(ctx, ports.KeyLastSync)
	if err != nil {
		if !domain.IsNotFound(err) {
			c.logger.WarnContext(ctx, "reading last sync failed", slog.Any("error", err))
		}

		return time.Time{}, nil
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, nil
	}

	return time.UnixMilli(ms), nil
}

// All returns a copy of the collection in order.
func (c *QuoteCollection) All() []domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.quotes)
}

// Len returns the number of quotes.
func (c *QuoteCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.quotes)
}

// Categories returns the category index of the current collection.
func (c *QuoteCollection) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.Categories(c.quotes)
}

// CategoryCount returns the number of distinct categories.
func (c *QuoteCollection) CategoryCount() int {
	return len(c.Categories())
}

// LastSync returns the time of the last successful sync, zero if never.
func (c *QuoteCollection) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastSync
}

// Add appends a validated quote, persists the collection, and posts a copy
// to the remote in the background. The remote outcome never affects the
// local add.
func (c *QuoteCollection) Add(ctx context.Context, text, category string) (domain.Quote, error) {
	q, err := domain.NewQuote(text, category)
	if err != nil {
		return domain.Quote{}, err
	}

	c.mu.Lock()
	c.quotes = append(c.quotes, q)
	c.persistLocked(ctx)
	c.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "quote added", slog.String("category", q.Category))

	if c.remote != nil {
		c.postInBackground(ctx, q)
	}

	return q, nil
}

func (c *QuoteCollection) postInBackground(ctx context.Context, q domain.Quote) {
	logger := logging.FromContext(ctx)
	postCtx := logging.WithContext(context.WithoutCancel(ctx), logger)

	c.posts.Add(1)
	go func() {
		defer c.posts.Done()

		postCtx, cancel := context.WithTimeout(postCtx, c.postTimeout)
		defer cancel()

		rec, err := c.remote.PostQuote(postCtx, q)
		if err != nil {
			logger.WarnContext(postCtx, "posting quote to remote failed", slog.Any("error", err))
			return
		}

		logger.DebugContext(postCtx, "quote posted to remote", slog.Int("remote_id", rec.ID))
	}()
}

// WaitPosts blocks until background posts finish or ctx ends.
func (c *QuoteCollection) WaitPosts(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.posts.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Import appends every well-formed quote from a JSON array, duplicates
// included, and returns how many were appended.
func (c *QuoteCollection) Import(ctx context.Context, data []byte) (int, error) {
	quotes, err := domain.DecodeQuotes(importSource, data)
	if err != nil {
		return 0, err
	}

	if len(quotes) == 0 {
		return 0, domain.NewParseError(importSource, "no valid quotes found", nil)
	}

	c.mu.Lock()
	c.quotes = append(c.quotes, quotes...)
	c.persistLocked(ctx)
	c.mu.Unlock()

	logging.FromContext(ctx).InfoContext(ctx, "quotes imported", slog.Int("count", len(quotes)))

	return len(quotes), nil
}

// Export renders the full collection as indented JSON.
func (c *QuoteCollection) Export() ([]byte, error) {
	return domain.EncodeQuotes(c.All())
}

// Filter returns the quotes matching category and search and persists both
// as the current preferences.
func (c *QuoteCollection) Filter(ctx context.Context, category, search string) []domain.Quote {
	category = strings.TrimSpace(category)
	if category == "" {
		category = domain.AllCategories
	}
	search = strings.ToLower(strings.TrimSpace(search))

	c.setQuietly(ctx, c.store, ports.KeySelectedCategory, category)
	c.setQuietly(ctx, c.store, ports.KeySearchText, search)

	c.mu.RLock()
	defer c.mu.RUnlock()

	return domain.Filter(c.quotes, category, search)
}

// Preferences returns the saved category and search. A saved category that
// no longer exists in the collection reads back as "all".
func (c *QuoteCollection) Preferences(ctx context.Context) Preferences {
	values, err := readAll(ctx,
		func(ctx context.Context) (string, error) { return c.getQuietly(ctx, c.store, ports.KeySelectedCategory), nil },
		func(ctx context.Context) (string, error) { return c.getQuietly(ctx, c.store, ports.KeySearchText), nil },
	)
	if err != nil {
		return Preferences{Category: domain.AllCategories}
	}

	prefs := Preferences{Category: values[0], Search: values[1]}
	if prefs.Category == "" || !slices.Contains(c.Categories(), prefs.Category) {
		prefs.Category = domain.AllCategories
	}

	return prefs
}

// Random picks a quote from the filtered pool and remembers it as the last
// viewed quote. An empty pool clears the last viewed quote.
func (c *QuoteCollection) Random(ctx context.Context, category, search string) (domain.Quote, error) {
	c.mu.RLock()
	pool := domain.Filter(c.quotes, category, search)
	c.mu.RUnlock()

	if len(pool) == 0 {
		if err := c.session.Delete(ctx, ports.KeyLastQuote); err != nil {
			c.logger.WarnContext(ctx, "clearing last quote failed", slog.Any("error", err))
		}

		return domain.Quote{}, domain.NewNotFoundError("quote", "random")
	}

	q := pool[c.intn(len(pool))]

	if data, err := json.Marshal(q); err == nil {
		c.setQuietly(ctx, c.session, ports.KeyLastQuote, string(data))
	}

	return q, nil
}

// LastViewed returns the quote last picked by Random.
func (c *QuoteCollection) LastViewed(ctx context.Context) (domain.Quote, error) {
	raw, err := c.session.Get(ctx, ports.KeyLastQuote)
	if err != nil {
		if !domain.IsNotFound(err) {
			c.logger.WarnContext(ctx, "reading last quote failed", slog.Any("error", err))
		}

		return domain.Quote{}, domain.NewNotFoundError("quote", "last")
	}

	var q domain.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil || q.Validate() != nil {
		return domain.Quote{}, domain.NewNotFoundError("quote", "last")
	}

	return q, nil
}

// MergeRemote merges remote quotes into the collection with the server-wins
// rule and records the sync time. The merge runs under the collection lock so
// concurrent adds are never lost. Both keys are written as one batch; on
// failure the store and the in-memory state are left as they were.
func (c *QuoteCollection) MergeRemote(ctx context.Context, remote []domain.Quote, syncedAt time.Time) (domain.MergeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := domain.Merge(c.quotes, remote)

	data, err := domain.EncodeQuotes(result.Quotes)
	if err != nil {
		return domain.MergeResult{}, err
	}

	batch := staged.New()
	_ = batch.Add(staged.NewStoreWrite(c.store, ports.KeyQuotes, string(data)))
	_ = batch.Add(staged.NewStoreWrite(c.store, ports.KeyLastSync, strconv.FormatInt(syncedAt.UnixMilli(), 10)))

	if err := batch.Commit(ctx); err != nil {
		return domain.MergeResult{}, err
	}

	c.quotes = result.Quotes
	c.lastSync = syncedAt

	if c.logger.Enabled(ctx, logging.LevelTrace) {
		for _, q := range remote {
			c.logger.Log(ctx, logging.LevelTrace, "merged remote quote", slog.String("key", q.Key()))
		}
	}

	return result, nil
}

// persistLocked writes the collection. Callers hold c.mu.
func (c *QuoteCollection) persistLocked(ctx context.Context) {
	data, err := domain.EncodeQuotes(c.quotes)
	if err != nil {
		c.logger.WarnContext(ctx, "encoding quotes failed", slog.Any("error", err))
		return
	}

	c.setQuietly(ctx, c.store, ports.KeyQuotes, string(data))
}

func (c *QuoteCollection) setQuietly(ctx context.Context, store ports.KeyValueStore, key, value string) {
	if err := store.Set(ctx, key, value); err != nil {
		c.logger.WarnContext(ctx, "store write failed", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *QuoteCollection) getQuietly(ctx context.Context, store ports.KeyValueStore, key string) string {
	value, err := store.Get(ctx, key)
	if err != nil {
		if !domain.IsNotFound(err) {
			c.logger.WarnContext(ctx, "store read failed", slog.String("key", key), slog.Any("error", err))
		}

		return ""
	}

	return value
}
