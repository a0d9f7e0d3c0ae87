// Package notify holds the transient notice shown to users.
package notify

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

// DefaultTTL is how long a notice stays visible when none is given.
const DefaultTTL = 2500 * time.Millisecond

const currentKey = "current"

// BoardConfig configures a Board.
type BoardConfig struct {
	// TTL is the default notice lifetime. Defaults to DefaultTTL.
	TTL time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Board keeps the latest notice until it expires. A new notice replaces the
// current one and restarts its lifetime.
type Board struct {
	cache  *gocache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.Notifier = (*Board)(nil)

// NewBoard creates an empty board.
func NewBoard(cfg BoardConfig) *Board {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Board{
		cache:  gocache.New(ttl, time.Minute),
		ttl:    ttl,
		logger: logger,
	}
}

// Notify implements ports.Notifier.
func (b *Board) Notify(ctx context.Context, n domain.Notice) {
	ttl := n.TTL
	if ttl <= 0 {
		ttl = b.ttl
	}

	n.TTL = ttl
	b.cache.Set(currentKey, n, ttl)

	b.logger.Log(ctx, levelOf(n.Level), "notice",
		slog.String("message", n.Message),
		slog.String("detail", n.Detail),
		slog.Duration("ttl", ttl),
	)
}

// Current returns the visible notice, if any.
func (b *Board) Current() (domain.Notice, bool) {
	v, ok := b.cache.Get(currentKey)
	if !ok {
		return domain.Notice{}, false
	}

	n, ok := v.(domain.Notice)

	return n, ok
}

// Clear removes the visible notice.
func (b *Board) Clear() {
	b.cache.Delete(currentKey)
}

func levelOf(l domain.NoticeLevel) slog.Level {
	switch l {
	case domain.NoticeError:
		return slog.LevelWarn
	case domain.NoticeInfo:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
