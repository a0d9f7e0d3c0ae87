package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/mocks"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func storeQuotes(t *testing.T, store ports.KeyValueStore, quotes []domain.Quote) {
	t.Helper()

	data, err := json.Marshal(quotes)
	require.NoError(t, err)
	require.NoError(t, store.Set(context.Background(), ports.KeyQuotes, string(data)))
}

func storedQuotes(t *testing.T, store ports.KeyValueStore) []domain.Quote {
	t.Helper()

	raw, err := store.Get(context.Background(), ports.KeyQuotes)
	require.NoError(t, err)

	var quotes []domain.Quote
	require.NoError(t, json.Unmarshal([]byte(raw), &quotes))

	return quotes
}

// newLoadedCollection returns a collection over a memory store seeded with quotes.
func newLoadedCollection(t *testing.T, quotes []domain.Quote) (*QuoteCollection, *memory.Store) {
	t.Helper()

	store := memory.New("test")
	if quotes != nil {
		storeQuotes(t, store, quotes)
	}

	c := NewQuoteCollection(CollectionConfig{
		Store:   store,
		Session: memory.New("session"),
		Logger:  discardLogger(),
		Intn:    func(int) int { return 0 },
	})
	require.NoError(t, c.Load(context.Background()))

	return c, store
}

func TestNewQuoteCollection_PanicsWithoutStore(t *testing.T) {
	assert.Panics(t, func() {
		NewQuoteCollection(CollectionConfig{})
	})
}

func TestQuoteCollection_Load(t *testing.T) {
	tests := []struct {
		name   string
		stored string
		want   []domain.Quote
		seeded bool
	}{
		{
			name:   "nothing stored seeds defaults",
			want:   domain.DefaultQuotes(),
			seeded: true,
		},
		{
			name:   "corrupt json falls back to defaults",
			seeded: true,
			stored: `{not json`,
			want:   domain.DefaultQuotes(),
		},
		{
			name:   "non-array falls back to defaults",
			seeded: true,
			stored: `{"text":"a","category":"b"}`,
			want:   domain.DefaultQuotes(),
		},
		{
			name:   "all entries malformed falls back to defaults",
			seeded: true,
			stored: `[{"text":1},{"category":"x"}]`,
			want:   domain.DefaultQuotes(),
		},
		{
			name:   "valid entries are kept",
			stored: `[{"text":"a","category":"x"},{"bogus":true}]`,
			want:   []domain.Quote{{Text: "a", Category: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New("")
			if tt.stored != "" {
				require.NoError(t, store.Set(context.Background(), ports.KeyQuotes, tt.stored))
			}

			c := NewQuoteCollection(CollectionConfig{Store: store, Logger: discardLogger()})
			require.NoError(t, c.Load(context.Background()))

			assert.Equal(t, tt.want, c.All())
			if tt.seeded {
				assert.Equal(t, tt.want, storedQuotes(t, store))
			}
		})
	}
}

func TestQuoteCollection_LoadStorageErrorFallsBack(t *testing.T) {
	store := mocks.NewMockKeyValueStore(t)
	storeErr := domain.NewStorageError("get", ports.KeyQuotes, errors.New("disk gone"))

	store.EXPECT().Get(mock.Anything, ports.KeyQuotes).Return("", storeErr)
	store.EXPECT().Get(mock.Anything, ports.KeyLastSync).Return("", storeErr)
	store.EXPECT().Set(mock.Anything, ports.KeyQuotes, mock.Anything).Return(storeErr)

	c := NewQuoteCollection(CollectionConfig{Store: store, Logger: discardLogger()})

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, domain.DefaultQuotes(), c.All())
	assert.True(t, c.LastSync().IsZero())
}

func TestQuoteCollection_LoadLastSync(t *testing.T) {
	store := memory.New("")
	require.NoError(t, store.Set(context.Background(), ports.KeyLastSync, "1700000000000"))

	c := NewQuoteCollection(CollectionConfig{Store: store, Logger: discardLogger()})
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, time.UnixMilli(1700000000000), c.LastSync())
}

func TestQuoteCollection_Add(t *testing.T) {
	c, store := newLoadedCollection(t, []domain.Quote{{Text: "a", Category: "x"}})

	q, err := c.Add(context.Background(), "  Stay hungry  ", " life ")

	require.NoError(t, err)
	assert.Equal(t, domain.Quote{Text: "Stay hungry", Category: "life"}, q)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, c.All(), storedQuotes(t, store))
	assert.Equal(t, []string{"life", "x"}, c.Categories())
}

func TestQuoteCollection_AddRejectsEmpty(t *testing.T) {
	c, store := newLoadedCollection(t, []domain.Quote{{Text: "a", Category: "x"}})

	tests := []struct {
		name     string
		text     string
		category string
		field    string
	}{
		{"empty text", "   ", "life", "text"},
		{"empty category", "quote", "", "category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Add(context.Background(), tt.text, tt.category)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	assert.Equal(t, 1, c.Len())
	assert.Len(t, storedQuotes(t, store), 1)
}

func TestQuoteCollection_AddPostsInBackground(t *testing.T) {
	remote := mocks.NewMockQuoteRemote(t)
	posted := make(chan domain.Quote, 1)

	remote.EXPECT().PostQuote(mock.Anything, domain.Quote{Text: "t", Category: "c"}).
		RunAndReturn(func(ctx context.Context, q domain.Quote) (*domain.RemoteRecord, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			posted <- q
			return &domain.RemoteRecord{ID: 101}, nil
		}).Once()

	c := NewQuoteCollection(CollectionConfig{
		Store:       memory.New(""),
		Remote:      remote,
		PostTimeout: time.Second,
		Logger:      discardLogger(),
	})
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Add(context.Background(), "t", "c")
	require.NoError(t, err)

	require.NoError(t, c.WaitPosts(context.Background()))
	assert.Equal(t, domain.Quote{Text: "t", Category: "c"}, <-posted)
}

func TestQuoteCollection_AddKeepsQuoteWhenPostFails(t *testing.T) {
	remote := mocks.NewMockQuoteRemote(t)
	remote.EXPECT().PostQuote(mock.Anything, mock.Anything).
		Return(nil, domain.NewNetworkError("posts-api", "post quote", 500, "boom")).Once()

	c := NewQuoteCollection(CollectionConfig{Store: memory.New(""), Remote: remote, Logger: discardLogger()})
	require.NoError(t, c.Load(context.Background()))
	before := c.Len()

	_, err := c.Add(context.Background(), "t", "c")
	require.NoError(t, err)
	require.NoError(t, c.WaitPosts(context.Background()))

	assert.Equal(t, before+1, c.Len())
}

func TestQuoteCollection_AddSurvivesCanceledRequest(t *testing.T) {
	remote := mocks.NewMockQuoteRemote(t)
	remote.EXPECT().PostQuote(mock.Anything, mock.Anything).
		RunAndReturn(func(ctx context.Context, _ domain.Quote) (*domain.RemoteRecord, error) {
			return &domain.RemoteRecord{ID: 1}, ctx.Err()
		}).Once()

	c := NewQuoteCollection(CollectionConfig{Store: memory.New(""), Remote: remote, Logger: discardLogger()})
	require.NoError(t, c.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Add(ctx, "t", "c")
	cancel()

	require.NoError(t, err)
	require.NoError(t, c.WaitPosts(context.Background()))
}

func TestQuoteCollection_Import(t *testing.T) {
	c, store := newLoadedCollection(t, []domain.Quote{{Text: "a", Category: "x"}})

	n, err := c.Import(context.Background(), []byte(`[{"text":"a","category":"x"},{"text":"b","category":"y"},{"text":2}]`))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []domain.Quote{
		{Text: "a", Category: "x"},
		{Text: "a", Category: "x"},
		{Text: "b", Category: "y"},
	}, c.All())
	assert.Equal(t, c.All(), storedQuotes(t, store))
}

func TestQuoteCollection_ImportRejects(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"not an array", `{"text":"a","category":"x"}`, "expected an array of quotes"},
		{"no valid quotes", `[{"text":1},{"category":"x"}]`, "no valid quotes found"},
		{"empty array", `[]`, "no valid quotes found"},
		{"invalid json", `[{`, "invalid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newLoadedCollection(t, []domain.Quote{{Text: "a", Category: "x"}})

			n, err := c.Import(context.Background(), []byte(tt.input))

			assert.Zero(t, n)
			var perr *domain.ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.reason, perr.Reason)
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestQuoteCollection_ExportRoundTrip(t *testing.T) {
	c, _ := newLoadedCollection(t, nil)

	data, err := c.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"text\"")

	other, _ := newLoadedCollection(t, []domain.Quote{{Text: "z", Category: "z"}})
	n, err := other.Import(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, len(domain.DefaultQuotes()), n)
}

func TestQuoteCollection_FilterPersistsPreferences(t *testing.T) {
	c, store := newLoadedCollection(t, nil)

	got := c.Filter(context.Background(), "SOFTWARE", "  Read ")

	assert.Equal(t, []domain.Quote{{Text: "Programs must be written for people to read.", Category: "software"}}, got)

	category, err := store.Get(context.Background(), ports.KeySelectedCategory)
	require.NoError(t, err)
	assert.Equal(t, "SOFTWARE", category)

	search, err := store.Get(context.Background(), ports.KeySearchText)
	require.NoError(t, err)
	assert.Equal(t, "read", search)
}

func TestQuoteCollection_FilterAll(t *testing.T) {
	c, _ := newLoadedCollection(t, nil)

	assert.Len(t, c.Filter(context.Background(), "", ""), 5)
	assert.Len(t, c.Filter(context.Background(), "all", ""), 5)
}

func TestQuoteCollection_Preferences(t *testing.T) {
	tests := []struct {
		name     string
		category string
		search   string
		want     Preferences
	}{
		{"nothing saved", "", "", Preferences{Category: "all"}},
		{"existing category", "software", "read", Preferences{Category: "software", Search: "read"}},
		{"vanished category", "poetry", "", Preferences{Category: "all"}},
		{"case differs from index", "Software", "", Preferences{Category: "all"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store := newLoadedCollection(t, nil)
			ctx := context.Background()

			if tt.category != "" {
				require.NoError(t, store.Set(ctx, ports.KeySelectedCategory, tt.category))
			}
			if tt.search != "" {
				require.NoError(t, store.Set(ctx, ports.KeySearchText, tt.search))
			}

			assert.Equal(t, tt.want, c.Preferences(ctx))
		})
	}
}

func TestQuoteCollection_RandomAndLastViewed(t *testing.T) {
	c, _ := newLoadedCollection(t, nil)
	ctx := context.Background()

	_, err := c.LastViewed(ctx)
	require.True(t, domain.IsNotFound(err))

	q, err := c.Random(ctx, "software", "")
	require.NoError(t, err)
	assert.Equal(t, "software", q.Category)

	last, err := c.LastViewed(ctx)
	require.NoError(t, err)
	assert.Equal(t, q, last)
}

func TestQuoteCollection_RandomEmptyPoolClearsLastViewed(t *testing.T) {
	c, _ := newLoadedCollection(t, nil)
	ctx := context.Background()

	_, err := c.Random(ctx, "all", "")
	require.NoError(t, err)

	_, err = c.Random(ctx, "poetry", "")
	require.True(t, domain.IsNotFound(err))

	_, err = c.LastViewed(ctx)
	assert.True(t, domain.IsNotFound(err))
}

func TestQuoteCollection_RandomUsesPicker(t *testing.T) {
	store := memory.New("")
	storeQuotes(t, store, []domain.Quote{{Text: "a", Category: "x"}, {Text: "b", Category: "x"}, {Text: "c", Category: "x"}})

	var gotN int
	c := NewQuoteCollection(CollectionConfig{
		Store:  store,
		Logger: discardLogger(),
		Intn: func(n int) int {
			gotN = n
			return n - 1
		},
	})
	require.NoError(t, c.Load(context.Background()))

	q, err := c.Random(context.Background(), "", "")

	require.NoError(t, err)
	assert.Equal(t, 3, gotN)
	assert.Equal(t, "c", q.Text)
}

func TestQuoteCollection_MergeRemote(t *testing.T) {
	c, store := newLoadedCollection(t, []domain.Quote{{Text: "a", Category: "server"}})
	syncedAt := time.UnixMilli(1700000000123)

	result, err := c.MergeRemote(context.Background(), []domain.Quote{
		{Text: "A", Category: "server"},
		{Text: "b", Category: "server"},
	}, syncedAt)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []domain.Quote{{Text: "A", Category: "server"}, {Text: "b", Category: "server"}}, c.All())
	assert.Equal(t, c.All(), storedQuotes(t, store))
	assert.Equal(t, syncedAt, c.LastSync())

	raw, err := store.Get(context.Background(), ports.KeyLastSync)
	require.NoError(t, err)
	assert.Equal(t, "1700000000123", raw)
}

func TestQuoteCollection_MergeRemoteRollsBackOnStoreFailure(t *testing.T) {
	store := mocks.NewMockKeyValueStore(t)
	storeErr := domain.NewStorageError("set", ports.KeyLastSync, errors.New("read-only"))

	store.EXPECT().Get(mock.Anything, ports.KeyQuotes).Return(`[{"text":"a","category":"x"}]`, nil)
	store.EXPECT().Get(mock.Anything, ports.KeyLastSync).Return("", domain.NewNotFoundError("key", ports.KeyLastSync))
	store.EXPECT().Set(mock.Anything, ports.KeyQuotes, mock.Anything).Return(nil).Twice()
	store.EXPECT().Set(mock.Anything, ports.KeyLastSync, mock.Anything).Return(storeErr).Once()

	c := NewQuoteCollection(CollectionConfig{Store: store, Logger: discardLogger()})
	require.NoError(t, c.Load(context.Background()))

	_, err := c.MergeRemote(context.Background(), []domain.Quote{{Text: "b", Category: "server"}}, time.Now())

	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))
	assert.Equal(t, []domain.Quote{{Text: "a", Category: "x"}}, c.All())
	assert.True(t, c.LastSync().IsZero())
}

func TestQuoteCollection_ConcurrentAdds(t *testing.T) {
	c, store := newLoadedCollection(t, []domain.Quote{{Text: "seed", Category: "x"}})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() {
			_, err := c.Add(context.Background(), "quote", string(rune('a'+i)))
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	assert.Equal(t, 21, c.Len())
	assert.Len(t, storedQuotes(t, store), 21)
	assert.Equal(t, 21, c.CategoryCount())
}
