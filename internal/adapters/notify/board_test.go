package notify

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotesync/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewBoard_Defaults(t *testing.T) {
	b := NewBoard(BoardConfig{})

	assert.Equal(t, DefaultTTL, b.ttl)
	assert.NotNil(t, b.logger)

	_, ok := b.Current()
	assert.False(t, ok)
}

func TestBoard_NotifyReplacesCurrent(t *testing.T) {
	ctx := context.Background()
	b := NewBoard(BoardConfig{Logger: discardLogger()})

	b.Notify(ctx, domain.Notice{Level: domain.NoticeInfo, Message: "Syncing with server…", TTL: 4 * time.Second})
	b.Notify(ctx, domain.Notice{Level: domain.NoticeSuccess, Message: "Quotes synced with server!"})

	got, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "Quotes synced with server!", got.Message)
	assert.Equal(t, domain.NoticeSuccess, got.Level)
	assert.Equal(t, DefaultTTL, got.TTL)
}

func TestBoard_NoticeExpires(t *testing.T) {
	ctx := context.Background()
	b := NewBoard(BoardConfig{TTL: 20 * time.Millisecond, Logger: discardLogger()})

	b.Notify(ctx, domain.Notice{Level: domain.NoticeError, Message: "Sync failed. Please try again."})

	_, ok := b.Current()
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := b.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestBoard_Clear(t *testing.T) {
	b := NewBoard(BoardConfig{Logger: discardLogger()})
	b.Notify(context.Background(), domain.Notice{Message: "x"})

	b.Clear()

	_, ok := b.Current()
	assert.False(t, ok)
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, levelOf(domain.NoticeError))
	assert.Equal(t, slog.LevelInfo, levelOf(domain.NoticeSuccess))
	assert.Equal(t, slog.LevelDebug, levelOf(domain.NoticeInfo))
}
