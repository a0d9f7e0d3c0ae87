package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jsamuelsen/quotesync/internal/domain"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
	"github.com/jsamuelsen/quotesync/internal/ports"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotesync/internal/app"

	// DefaultPollInterval is used when StartPolling gets a non-positive interval.
	DefaultPollInterval = 30 * time.Second

	defaultSyncTimeout = 15 * time.Second
	defaultSyncingTTL  = 4 * time.Second
)

// User-facing sync notices.
const (
	MsgSyncing    = "Syncing with server…"
	MsgSynced     = "Quotes synced with server!"
	MsgUpToDate   = "Quotes already up to date."
	MsgSyncFailed = "Sync failed. Please try again."
)

// ErrSyncInProgress is returned by SyncNow while another sync is running.
var ErrSyncInProgress = domain.NewConflictError("sync", "a sync is already in progress")

// SyncState is the synchronizer's current activity.
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncSyncing SyncState = "syncing"
)

// SyncOutcome is the result of the last finished sync.
type SyncOutcome string

const (
	OutcomeSucceeded SyncOutcome = "succeeded"
	OutcomeFailed    SyncOutcome = "failed"
)

// SyncTrigger records what started a sync.
type SyncTrigger string

const (
	TriggerManual  SyncTrigger = "manual"
	TriggerPoll    SyncTrigger = "poll"
	TriggerStartup SyncTrigger = "startup"
	TriggerCLI     SyncTrigger = "cli"
)

// SyncSummary describes one successful sync.
type SyncSummary struct {
	Added    int           `json:"added"`
	Updated  int           `json:"updated"`
	Total    int           `json:"total"`
	Trigger  SyncTrigger   `json:"trigger"`
	SyncedAt time.Time     `json:"synced_at"`
	Duration time.Duration `json:"-"`
}

// Unchanged reports whether the sync neither added nor updated anything.
func (s SyncSummary) Unchanged() bool {
	return s.Added == 0 && s.Updated == 0
}

// SyncStatus is a snapshot of the synchronizer.
type SyncStatus struct {
	State       SyncState
	LastOutcome SyncOutcome
	LastResult  *SyncSummary
	LastError   string
	LastSync    time.Time
	Polling     bool
	Interval    time.Duration
}

// SynchronizerConfig contains configuration for the synchronizer.
type SynchronizerConfig struct {
	// Collection is merged into. Required.
	Collection *QuoteCollection

	// Remote is fetched from. Required.
	Remote ports.QuoteRemote

	// Notifier receives progress notices. Optional.
	Notifier ports.Notifier

	// Executor runs the sync steps. Defaults to one using Logger.
	Executor *Executor

	// Timeout bounds a single sync. Defaults to 15s.
	Timeout time.Duration

	// SyncingTTL is how long the in-progress notice lives. Defaults to 4s.
	SyncingTTL time.Duration

	// Logger is the structured logger.
	Logger *slog.Logger

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Synchronizer pulls the remote collection into the local one. At most one
// sync runs at a time, and at most one polling loop exists.
type Synchronizer struct {
	coll       *QuoteCollection
	remote     ports.QuoteRemote
	notifier   ports.Notifier
	exec       *Executor
	timeout    time.Duration
	syncingTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time

	busy atomic.Bool

	mu          sync.Mutex
	state       SyncState
	lastOutcome SyncOutcome
	lastResult  *SyncSummary
	lastErr     string
	cancelRun   context.CancelFunc
	pollCancel  context.CancelFunc
	pollDone    chan struct{}
	interval    time.Duration
	closed      bool
	runs        sync.WaitGroup

	runCounter     metric.Int64Counter
	runDuration    metric.Float64Histogram
	addedCounter   metric.Int64Counter
	updatedCounter metric.Int64Counter
}

// NewSynchronizer creates a synchronizer. Panics if Collection or Remote is nil.
func NewSynchronizer(cfg SynchronizerConfig) (*Synchronizer, error) {
	if cfg.Collection == nil {
		panic("Synchronizer: Collection is required")
	}

	if cfg.Remote == nil {
		panic("Synchronizer: Remote is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "app.Synchronizer"))

	s := &Synchronizer{
		coll:       cfg.Collection,
		remote:     cfg.Remote,
		notifier:   cfg.Notifier,
		exec:       cfg.Executor,
		timeout:    cfg.Timeout,
		syncingTTL: cfg.SyncingTTL,
		logger:     logger,
		now:        cfg.Now,
		state:      SyncIdle,
	}

	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}

	if s.exec == nil {
		s.exec = NewExecutor(logger)
	}

	if s.timeout <= 0 {
		s.timeout = defaultSyncTimeout
	}

	if s.syncingTTL <= 0 {
		s.syncingTTL = defaultSyncingTTL
	}

	if s.now == nil {
		s.now = time.Now
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Synchronizer) initMetrics() error {
	meter := otel.Meter(instrumentationName)

	var err error

	s.runCounter, err = meter.Int64Counter("quotesync.sync.runs",
		metric.WithDescription("Sync runs by outcome and trigger"))
	if err != nil {
		return fmt.Errorf("creating sync runs counter: %w", err)
	}

	s.runDuration, err = meter.Float64Histogram("quotesync.sync.duration",
		metric.WithDescription("Duration of sync runs"),
		metric.WithUnit("s"))
	if err != nil {
		return fmt.Errorf("creating sync duration histogram: %w", err)
	}

	s.addedCounter, err = meter.Int64Counter("quotesync.sync.added",
		metric.WithDescription("Remote quotes added by sync"))
	if err != nil {
		return fmt.Errorf("creating sync added counter: %w", err)
	}

	s.updatedCounter, err = meter.Int64Counter("quotesync.sync.updated",
		metric.WithDescription("Local quotes replaced by sync"))
	if err != nil {
		return fmt.Errorf("creating sync updated counter: %w", err)
	}

	return nil
}

// SyncNow fetches the remote collection and merges it into the local one.
// It returns ErrSyncInProgress immediately if a sync is already running.
// On failure the collection and last sync time are unchanged.
func (s *Synchronizer) SyncNow(ctx context.Context, trigger SyncTrigger) (SyncSummary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return SyncSummary{}, ErrSyncInProgress
	}
	defer s.busy.Store(false)

	runCtx, err := s.beginRun(ctx)
	if err != nil {
		return SyncSummary{}, err
	}
	defer s.endRun()

	logger := s.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}
	runCtx = logging.WithContext(runCtx, logger)
	runID := uuid.NewString()
	runCtx = logging.WithSyncRun(runCtx, runID, string(trigger))

	if logging.CorrelationID(runCtx) == "" {
		runCtx = logging.WithCorrelationID(runCtx, runID)
	}

	s.notifier.Notify(runCtx, domain.Notice{Level: domain.NoticeInfo, Message: MsgSyncing, TTL: s.syncingTTL})

	start := time.Now()
	summary, err := Execute(runCtx, s.exec, s.operation(), SyncRun{ID: runID, Trigger: trigger})
	duration := time.Since(start)

	if err != nil {
		s.finishRun(OutcomeFailed, nil, err)
		s.recordMetrics(runCtx, trigger, OutcomeFailed, duration, SyncSummary{})
		logging.FromContext(runCtx).WarnContext(runCtx, "sync failed", slog.Any("error", err))
		s.notifier.Notify(runCtx, domain.Notice{Level: domain.NoticeError, Message: MsgSyncFailed})

		return SyncSummary{}, err
	}

	summary.Duration = duration
	s.finishRun(OutcomeSucceeded, &summary, nil)
	s.recordMetrics(runCtx, trigger, OutcomeSucceeded, duration, summary)

	logging.FromContext(runCtx).InfoContext(runCtx, "sync completed",
		slog.Int("added", summary.Added),
		slog.Int("updated", summary.Updated),
		slog.Int("total", summary.Total),
	)

	if summary.Unchanged() {
		s.notifier.Notify(runCtx, domain.Notice{Level: domain.NoticeSuccess, Message: MsgUpToDate})
	} else {
		s.notifier.Notify(runCtx, domain.Notice{
			Level:   domain.NoticeSuccess,
			Message: MsgSynced,
			Detail:  fmt.Sprintf("added %d, updated %d", summary.Added, summary.Updated),
		})
	}

	return summary, nil
}

// operation builds the sync steps: fetch, check the fetched quotes, merge and
// persist under the collection lock, then summarize.
func (s *Synchronizer) operation() Operation[[]domain.Quote, []domain.Quote, SyncSummary] {
	var (
		merged   domain.MergeResult
		syncedAt time.Time
	)

	return Operation[[]domain.Quote, []domain.Quote, SyncSummary]{
		Name: "sync",
		Validate: func(ctx context.Context, _ SyncRun) error {
			return ctx.Err()
		},
		Perform: func(ctx context.Context, _ SyncRun) ([]domain.Quote, error) {
			return s.remote.FetchQuotes(ctx)
		},
		Verify: func(ctx context.Context, _ SyncRun, fetched []domain.Quote) ([]domain.Quote, error) {
			verified := make([]domain.Quote, 0, len(fetched))
			for _, q := range fetched {
				if q.Validate() != nil {
					continue
				}
				verified = append(verified, q)
			}

			if dropped := len(fetched) - len(verified); dropped > 0 {
				logging.FromContext(ctx).WarnContext(ctx, "dropped invalid remote quotes", slog.Int("dropped", dropped))
			}

			return verified, nil
		},
		Archive: func(ctx context.Context, _ SyncRun, verified []domain.Quote) error {
			syncedAt = s.now()

			var err error
			merged, err = s.coll.MergeRemote(ctx, verified, syncedAt)

			return err
		},
		Respond: func(_ context.Context, run SyncRun, _ []domain.Quote) (SyncSummary, error) {
			return SyncSummary{
				Added:    merged.Added,
				Updated:  merged.Updated,
				Total:    len(merged.Quotes),
				Trigger:  run.Trigger,
				SyncedAt: syncedAt,
			}, nil
		},
	}
}

func (s *Synchronizer) beginRun(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, domain.NewUnavailableError("synchronizer", "shut down")
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	s.cancelRun = cancel
	s.state = SyncSyncing
	s.runs.Add(1)

	return runCtx, nil
}

func (s *Synchronizer) endRun() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelRun != nil {
		s.cancelRun()
		s.cancelRun = nil
	}

	s.state = SyncIdle
	s.runs.Done()
}

func (s *Synchronizer) finishRun(outcome SyncOutcome, summary *SyncSummary, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastOutcome = outcome
	if summary != nil {
		result := *summary
		s.lastResult = &result
	}

	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
}

func (s *Synchronizer) recordMetrics(ctx context.Context, trigger SyncTrigger, outcome SyncOutcome, duration time.Duration, summary SyncSummary) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("trigger", string(trigger)),
	)

	s.runCounter.Add(ctx, 1, attrs)
	s.runDuration.Record(ctx, duration.Seconds(), attrs)

	if outcome == OutcomeSucceeded {
		s.addedCounter.Add(ctx, int64(summary.Added))
		s.updatedCounter.Add(ctx, int64(summary.Updated))
	}
}

// Status returns a snapshot of the synchronizer.
func (s *Synchronizer) Status() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SyncStatus{
		State:       s.state,
		LastOutcome: s.lastOutcome,
		LastError:   s.lastErr,
		LastSync:    s.coll.LastSync(),
		Polling:     s.pollCancel != nil,
		Interval:    s.interval,
	}

	if s.lastResult != nil {
		result := *s.lastResult
		status.LastResult = &result
	}

	return status
}

// LastSync returns the time of the last successful sync, zero if never.
func (s *Synchronizer) LastSync() time.Time {
	return s.coll.LastSync()
}

// StartPolling syncs every interval until StopPolling or Shutdown.
// Any previous polling loop is stopped first, so there is never more than one.
func (s *Synchronizer) StartPolling(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	prevDone := s.stopPollingLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.pollCancel = cancel
	s.pollDone = done
	s.interval = interval
	s.mu.Unlock()

	if prevDone != nil {
		<-prevDone
	}

	go s.poll(ctx, interval, done)

	s.logger.Info("polling started", slog.Duration("interval", interval))
}

// StopPolling stops the polling loop and waits for it to exit.
func (s *Synchronizer) StopPolling() {
	s.mu.Lock()
	done := s.stopPollingLocked()
	s.mu.Unlock()

	if done != nil {
		<-done
		s.logger.Info("polling stopped")
	}
}

// stopPollingLocked cancels the loop and returns its done channel. Callers
// hold s.mu and must wait on the channel only after releasing it.
func (s *Synchronizer) stopPollingLocked() chan struct{} {
	if s.pollCancel == nil {
		return nil
	}

	s.pollCancel()
	done := s.pollDone
	s.pollCancel = nil
	s.pollDone = nil
	s.interval = 0

	return done
}

func (s *Synchronizer) poll(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}

			_, err := s.SyncNow(ctx, TriggerPoll)
			if errors.Is(err, ErrSyncInProgress) {
				s.logger.Debug("poll skipped, sync in progress")
			}
		}
	}
}

// Shutdown stops polling, cancels an in-flight sync, and waits for both to
// finish or for ctx to end. Later SyncNow calls fail with UnavailableError.
func (s *Synchronizer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	pollDone := s.stopPollingLocked()
	if s.cancelRun != nil {
		s.cancelRun()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		if pollDone != nil {
			<-pollDone
		}
		s.runs.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Notice) {}
