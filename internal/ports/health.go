package ports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	// ErrDuplicateChecker is returned by Register for a name already in use.
	ErrDuplicateChecker = errors.New("duplicate health checker")

	// ErrUnnamedChecker is returned by Register for a checker with an empty name.
	ErrUnnamedChecker = errors.New("health checker has no name")
)

// HealthChecker is a dependency readiness waits on. The store adapters
// report as "store-<driver>" and the posts client as its remote name.
//
//	func (s *Store) Name() string { return "store-sqlite" }
//
//	func (s *Store) Check(ctx context.Context) error {
//	    return s.db.PingContext(ctx)
//	}
type HealthChecker interface {
	Name() string

	// Check returns nil when the dependency can serve requests. It must
	// return once ctx is done.
	Check(ctx context.Context) error
}

// HealthRegistry holds the checkers behind GET /-/ready.
type HealthRegistry interface {
	Register(checker HealthChecker) error
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is "healthy" or "unhealthy".
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResult is the readiness report. Status is unhealthy when any check is.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// Failing returns the names of the unhealthy checks, sorted.
func (r *HealthResult) Failing() []string {
	var names []string

	for name, check := range r.Checks {
		if check.Status == HealthStatusUnhealthy {
			names = append(names, name)
		}
	}

	slices.Sort(names)

	return names
}

// CheckResult is one checker's outcome.
type CheckResult struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	DurationMS int64        `json:"durationMs"`
}

// DefaultHealthRegistry runs its checkers concurrently on every CheckAll.
type DefaultHealthRegistry struct {
	mu       sync.RWMutex
	checkers []HealthChecker
	now      func() time.Time
}

// NewHealthRegistry returns an empty registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{now: time.Now}
}

// Register adds checker. Names must be unique and non-empty.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	name := checker.Name()
	if name == "" {
		return ErrUnnamedChecker
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.ContainsFunc(r.checkers, func(c HealthChecker) bool { return c.Name() == name }) {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.checkers = append(r.checkers, checker)

	return nil
}

// CheckAll runs every checker with ctx and waits for all of them. A failing
// check does not cut the others short.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := slices.Clone(r.checkers)
	r.mu.RUnlock()

	results := make([]*CheckResult, len(checkers))

	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Go(func() {
			results[i] = r.run(ctx, c)
		})
	}

	wg.Wait()

	report := &HealthResult{
		Status:    HealthStatusHealthy,
		Checks:    make(map[string]*CheckResult, len(checkers)),
		Timestamp: r.now(),
	}

	for i, c := range checkers {
		report.Checks[c.Name()] = results[i]

		if results[i].Status == HealthStatusUnhealthy {
			report.Status = HealthStatusUnhealthy
		}
	}

	return report
}

func (r *DefaultHealthRegistry) run(ctx context.Context, c HealthChecker) *CheckResult {
	start := r.now()
	err := c.Check(ctx)

	result := &CheckResult{
		Status:     HealthStatusHealthy,
		DurationMS: r.now().Sub(start).Milliseconds(),
	}

	if err != nil {
		result.Status = HealthStatusUnhealthy
		result.Message = err.Error()
	}

	return result
}
