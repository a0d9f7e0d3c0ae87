package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients"
	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/notify"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage/memory"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
)

// components is the object graph shared by the commands.
type components struct {
	store  storage.Store
	posts  *acl.PostsClient
	board  *notify.Board
	coll   *app.QuoteCollection
	logger *slog.Logger
}

// wireOptions selects the optional parts of the graph.
type wireOptions struct {
	// remote builds the posts client and lets added quotes reach it.
	remote bool
}

// wire opens the store, builds the collection, and loads it.
// The caller must Close the result.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts wireOptions) (*components, error) {
	store, err := storage.Open(ctx, storage.Config{
		Driver:    cfg.Store.Driver,
		Path:      cfg.Store.Path,
		URL:       cfg.Store.URL,
		Namespace: cfg.Store.Namespace,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	c := &components{
		store:  store,
		logger: logger,
		board: notify.NewBoard(notify.BoardConfig{
			TTL:    cfg.Notice.TTL,
			Logger: logger,
		}),
	}

	collCfg := app.CollectionConfig{
		Store:       store,
		Session:     memory.New("session"),
		PostTimeout: cfg.Sync.PostTimeout,
		Logger:      logger,
	}

	if opts.remote {
		posts, err := newPostsClient(cfg, logger)
		if err != nil {
			return nil, errors.Join(err, store.Close())
		}

		c.posts = posts
		collCfg.Remote = posts
	}

	c.coll = app.NewQuoteCollection(collCfg)

	if err := c.coll.Load(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("loading collection: %w", err), store.Close())
	}

	return c, nil
}

// newPostsClient builds the resilient HTTP client and the posts adapter on top of it.
func newPostsClient(cfg *config.Config, logger *slog.Logger) (*acl.PostsClient, error) {
	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Remote.BaseURL,
		ServiceName: cfg.Remote.Name,
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		UserAgent:   "quotesync/" + Version,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	return acl.NewPostsClient(acl.PostsClientConfig{
		Client: httpClient,
		Path:   cfg.Remote.Path,
		Limit:  cfg.Remote.Limit,
		UserID: cfg.Remote.UserID,
		Logger: logger,
	}), nil
}

// newSynchronizer builds a synchronizer over the wired collection and posts client.
func (c *components) newSynchronizer(cfg *config.Config) (*app.Synchronizer, error) {
	if c.posts == nil {
		return nil, errors.New("synchronizer needs the remote client")
	}

	syncer, err := app.NewSynchronizer(app.SynchronizerConfig{
		Collection: c.coll,
		Remote:     c.posts,
		Notifier:   c.board,
		Timeout:    cfg.Sync.Timeout,
		SyncingTTL: cfg.Notice.SyncingTTL,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating synchronizer: %w", err)
	}

	return syncer, nil
}

// Close waits for background posts and closes the store.
func (c *components) Close(ctx context.Context) error {
	var errs []error

	if err := c.coll.WaitPosts(ctx); err != nil {
		errs = append(errs, fmt.Errorf("waiting for remote posts: %w", err))
	}

	if err := c.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	return errors.Join(errs...)
}
