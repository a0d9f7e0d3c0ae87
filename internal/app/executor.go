package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// A sync run goes through five steps in order:
//
//	validate  preconditions, nothing fetched yet
//	perform   fetch from the posts resource
//	verify    drop what the remote got wrong
//	archive   merge into the collection and persist
//	respond   build the summary for the caller
//
// Nothing is written before verify has accepted what perform returned, so a
// failed fetch or a bad payload never reaches the store.

// ExecutionStep names one step of a sync run.
type ExecutionStep string

const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

var stepFailures = map[ExecutionStep]string{
	StepValidate: "sync precondition not met",
	StepPerform:  "fetching remote quotes",
	StepVerify:   "checking remote quotes",
	StepArchive:  "merging into the collection",
	StepRespond:  "building the sync summary",
}

// SyncRun identifies one execution of a sync operation.
type SyncRun struct {
	ID      string
	Trigger SyncTrigger
}

// ExecutionError records which step of which run failed.
type ExecutionError struct {
	Step    ExecutionStep
	RunID   string
	Trigger SyncTrigger
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
	}

	return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// StepTiming is how long one step of a run took.
type StepTiming struct {
	Step     ExecutionStep
	Duration time.Duration
}

// Executor runs sync operations step by step, logging each step and
// recording its duration.
type Executor struct {
	logger       *slog.Logger
	stepDuration metric.Float64Histogram
	now          func() time.Time
}

// NewExecutor creates an executor that logs to logger when the context
// carries none.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	hist, err := otel.Meter(instrumentationName).Float64Histogram("quotesync.sync.step.duration",
		metric.WithDescription("Duration of each sync step"),
		metric.WithUnit("s"))
	if err != nil {
		hist = noop.Float64Histogram{}
	}

	return &Executor{logger: logger, stepDuration: hist, now: time.Now}
}

// Operation holds the steps of one sync. Nil steps are skipped; a skipped
// perform or verify hands the zero value on.
type Operation[P, V, O any] struct {
	// Name tags logs and metrics.
	Name string

	Validate func(ctx context.Context, run SyncRun) error
	Perform  func(ctx context.Context, run SyncRun) (P, error)
	Verify   func(ctx context.Context, run SyncRun, performed P) (V, error)
	Archive  func(ctx context.Context, run SyncRun, verified V) error
	Respond  func(ctx context.Context, run SyncRun, verified V) (O, error)
}

// runner carries one Execute call through its steps.
type runner struct {
	exec    *Executor
	logger  *slog.Logger
	name    string
	run     SyncRun
	timings []StepTiming
}

func (r *runner) step(ctx context.Context, step ExecutionStep, fn func(context.Context) error) error {
	logger := r.logger.With(slog.String("step", string(step)))
	start := r.exec.now()

	err := fn(ctx)

	elapsed := r.exec.now().Sub(start)
	r.timings = append(r.timings, StepTiming{Step: step, Duration: elapsed})

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	r.exec.stepDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("operation", r.name),
		attribute.String("step", string(step)),
		attribute.String("trigger", string(r.run.Trigger)),
		attribute.String("outcome", outcome),
	))

	if err != nil {
		level := slog.LevelError
		if step == StepValidate {
			level = slog.LevelWarn
		}

		logger.Log(ctx, level, "sync step failed", slog.Any("error", err))

		return &ExecutionError{
			Step:    step,
			RunID:   r.run.ID,
			Trigger: r.run.Trigger,
			Message: stepFailures[step],
			Cause:   err,
		}
	}

	logger.DebugContext(ctx, "sync step done", slog.Duration("duration", elapsed))

	return nil
}

// Execute runs op for run and returns what Respond built. It stops at the
// first failing step and returns an *ExecutionError naming it.
func Execute[P, V, O any](ctx context.Context, exec *Executor, op Operation[P, V, O], run SyncRun) (O, error) {
	var (
		zero      O
		performed P
		verified  V
		result    O
	)

	logger := exec.logger
	if l, ok := logging.Lookup(ctx); ok {
		logger = l
	}

	r := &runner{
		exec:   exec,
		logger: logger.With(slog.String("operation", op.Name)),
		name:   op.Name,
		run:    run,
	}

	steps := []struct {
		step ExecutionStep
		fn   func(context.Context) error
	}{
		{StepValidate, func(ctx context.Context) error {
			if op.Validate == nil {
				return nil
			}
			return op.Validate(ctx, run)
		}},
		{StepPerform, func(ctx context.Context) (err error) {
			if op.Perform != nil {
				performed, err = op.Perform(ctx, run)
			}
			return err
		}},
		{StepVerify, func(ctx context.Context) (err error) {
			if op.Verify != nil {
				verified, err = op.Verify(ctx, run, performed)
			}
			return err
		}},
		{StepArchive, func(ctx context.Context) error {
			if op.Archive == nil {
				return nil
			}
			return op.Archive(ctx, run, verified)
		}},
		{StepRespond, func(ctx context.Context) (err error) {
			if op.Respond != nil {
				result, err = op.Respond(ctx, run, verified)
			}
			return err
		}},
	}

	for _, s := range steps {
		if err := r.step(ctx, s.step, s.fn); err != nil {
			return zero, err
		}
	}

	var total time.Duration
	for _, t := range r.timings {
		total += t.Duration
	}

	r.logger.InfoContext(ctx, "sync operation completed", slog.Duration("duration", total))

	return result, nil
}

// IsExecutionError checks if an error came out of a sync step.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError

	return errors.As(err, &execErr)
}

// GetExecutionStep extracts the failed step from an execution error.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}

// GetSyncRun extracts the run an execution error belongs to.
func GetSyncRun(err error) (SyncRun, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return SyncRun{ID: execErr.RunID, Trigger: execErr.Trigger}, true
	}

	return SyncRun{}, false
}
