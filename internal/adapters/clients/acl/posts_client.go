package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

const (
	defaultPostsPath   = "/posts"
	defaultPostsLimit  = 12
	defaultPostsUserID = 1
)

// PostsClientConfig contains configuration for the posts client.
type PostsClientConfig struct {
	// Client is the HTTP client to use for requests. Its BaseURL points at the remote host.
	Client *clients.Client

	// Path is the posts collection path, "/posts" when empty.
	Path string

	// Limit caps how many posts become quotes per fetch, 12 when zero.
	Limit int

	// UserID is sent as userId on every post, 1 when zero.
	UserID int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// PostsClient implements ports.QuoteRemote over a JSONPlaceholder-style posts resource.
type PostsClient struct {
	BaseAdapter

	path   string
	limit  int
	userID int
	logger *slog.Logger
}

// NewPostsClient creates a new posts client adapter.
// Panics if Client is nil.
func NewPostsClient(cfg PostsClientConfig) *PostsClient {
	if cfg.Client == nil {
		panic("PostsClient: Client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &PostsClient{
		BaseAdapter: NewBaseAdapter(cfg.Client, cfg.Client.ServiceName()),
		path:        cfg.Path,
		limit:       cfg.Limit,
		userID:      cfg.UserID,
		logger:      logger,
	}

	if c.path == "" {
		c.path = defaultPostsPath
	}

	if c.limit <= 0 {
		c.limit = defaultPostsLimit
	}

	if c.userID <= 0 {
		c.userID = defaultPostsUserID
	}

	return c
}

// postDTO is a post as the remote resource returns it.
type postDTO struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// newPostDTO is the request body of a post creation.
type newPostDTO struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	UserID int    `json:"userId"`
}

// FetchQuotes reads the posts collection and converts the first Limit posts
// into server quotes. Posts with a blank title are dropped.
func (c *PostsClient) FetchQuotes(ctx context.Context) ([]domain.Quote, error) {
	const operation = "fetch quotes"
	c.logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", c.path))

	body, err := c.Get(ctx, c.path, operation)
	if err != nil {
		return nil, err
	}

	// Records stay raw so one malformed post is dropped instead of failing the batch.
	posts, err := DecodeResponse[[]json.RawMessage](body, c.ServiceName(), operation)
	if err != nil {
		return nil, err
	}

	records := *posts
	if len(records) > c.limit {
		records = records[:c.limit]
	}

	quotes, dropped, err := TranslateValid(records, translatePost)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).DebugContext(ctx, "fetched remote quotes",
		slog.Int("received", len(*posts)),
		slog.Int("kept", len(quotes)),
		slog.Int("dropped", dropped),
	)

	return quotes, nil
}

// PostQuote creates a post from the quote: its text as title, its category as body.
func (c *PostsClient) PostQuote(ctx context.Context, q domain.Quote) (*domain.RemoteRecord, error) {
	const operation = "post quote"

	payload, err := json.Marshal(newPostDTO{
		Title:  q.Text,
		Body:   q.Category,
		UserID: c.userID,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding post: %w", err)
	}

	body, err := c.Post(ctx, c.path, bytes.NewReader(payload), operation)
	if err != nil {
		return nil, err
	}

	created, err := DecodeResponse[postDTO](body, c.ServiceName(), operation)
	if err != nil {
		return nil, err
	}

	c.logger.Log(ctx, logging.LevelTrace, "remote post created", slog.Int("remote_id", created.ID))

	return &domain.RemoteRecord{
		ID:     created.ID,
		Title:  created.Title,
		Body:   created.Body,
		UserID: created.UserID,
	}, nil
}

// translatePost converts one raw post to a server quote. Records that are not
// objects, or whose title is not a non-blank string, fail validation.
func translatePost(raw *json.RawMessage) (domain.Quote, error) {
	var p postDTO
	if err := json.Unmarshal(*raw, &p); err != nil {
		return domain.Quote{}, domain.NewValidationError("post", "malformed record")
	}

	text := strings.TrimSpace(p.Title)
	if err := ValidateRequired(text, "title"); err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{Text: text, Category: domain.ServerCategory}, nil
}

// Name returns the health check name for this client.
// Implements ports.HealthChecker.
func (c *PostsClient) Name() string {
	return c.ServiceName()
}

// Check verifies the posts resource answers with a 2xx.
// Implements ports.HealthChecker.
func (c *PostsClient) Check(ctx context.Context) error {
	if stats := c.Client().CircuitStats(); stats.State == clients.StateOpen {
		return domain.NewUnavailableError(c.ServiceName(),
			fmt.Sprintf("circuit breaker open until %s after %d trips",
				stats.RetryAt.UTC().Format(time.RFC3339), stats.Trips))
	}

	body, err := c.Get(ctx, c.path+"?_limit=1", "health check")
	if err != nil {
		return err
	}

	return body.Close()
}
