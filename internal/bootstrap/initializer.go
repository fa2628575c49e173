// Package bootstrap lazily constructs the application for serverless
// invocations.
//
// A serverless runtime reuses a process across many invocations but gives no
// explicit startup hook, so the first request pays for database connection
// and application construction. The Initializer makes that cold start safe:
// concurrent invocations share a single in-flight attempt, connection
// failures are retried with backoff inside one attempt, and a failed attempt
// is cached for a cooldown window so a broken database is not hammered by
// every subsequent request.
package bootstrap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/daybook-app/daybook-backend/internal/app"
	"github.com/daybook-app/daybook-backend/internal/logger"
	"github.com/daybook-app/daybook-backend/internal/metrics"
)

// Default initialization tuning.
const (
	DefaultConnectAttempts = 3
	DefaultConnectTimeout  = 10 * time.Second
	DefaultBackoffBase     = time.Second
	DefaultBackoffMax      = 5 * time.Second
	DefaultFailureCooldown = 30 * time.Second
)

// Config tunes the initializer. Zero values fall back to the defaults above.
type Config struct {
	// ConnectAttempts is the number of database connection attempts made
	// within a single initialization.
	ConnectAttempts int

	// ConnectTimeout bounds each individual connection attempt.
	ConnectTimeout time.Duration

	// BackoffBase is the delay before the second connection attempt. The
	// delay doubles per attempt.
	BackoffBase time.Duration

	// BackoffMax caps the backoff delay.
	BackoffMax time.Duration

	// FailureCooldown is how long a failed initialization is cached before
	// a new attempt is allowed.
	FailureCooldown time.Duration
}

func (c *Config) applyDefaults() {
	if c.ConnectAttempts == 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.FailureCooldown == 0 {
		c.FailureCooldown = DefaultFailureCooldown
	}
}

// attempt is a single shared initialization attempt. Callers that arrive
// while it runs wait on done and read app/err afterwards.
type attempt struct {
	done chan struct{}
	app  *app.App
	err  error
}

// failure is a cached initialization failure.
type failure struct {
	err error
	at  time.Time
}

// Initializer builds the application at most once and hands the same
// instance to every caller. It is safe for concurrent use.
type Initializer struct {
	mu       sync.Mutex
	cfg      Config
	buildApp BuildFunc

	app         *app.App
	inflight    *attempt
	lastFailure *failure

	// injectable for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// BuildFunc performs one full initialization: connect to the database and
// construct the application. The context carries the per-attempt timeout
// for the connection phase.
type BuildFunc func(ctx context.Context) (*app.App, error)

// New creates an Initializer that uses build to construct the application.
func New(cfg Config, build BuildFunc) *Initializer {
	cfg.applyDefaults()
	return &Initializer{
		cfg:      cfg,
		buildApp: build,
		now:      time.Now,
		sleep:    sleepContext,
	}
}

// Get returns the shared application instance, constructing it on first use.
//
// Behavior:
//   - If the application is already built, it is returned immediately.
//   - If another caller is initializing, Get waits for that attempt and
//     shares its outcome.
//   - If the last attempt failed less than the cooldown ago, the cached
//     failure is returned without touching the database.
//   - Otherwise a fresh attempt starts: up to ConnectAttempts database
//     connections with exponential backoff, then application construction.
//
// Cancelling ctx abandons the wait but does not stop an in-flight attempt;
// its outcome is still recorded for later callers.
func (i *Initializer) Get(ctx context.Context) (*app.App, error) {
	i.mu.Lock()

	if i.app != nil {
		defer i.mu.Unlock()
		return i.app, nil
	}

	if i.inflight != nil {
		att := i.inflight
		i.mu.Unlock()
		select {
		case <-att.done:
			return att.app, att.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if f := i.lastFailure; f != nil {
		elapsed := i.now().Sub(f.at)
		if elapsed < i.cfg.FailureCooldown {
			i.mu.Unlock()
			logger.Debug("returning cached initialization failure",
				"age", elapsed.String(),
				"cooldown", i.cfg.FailureCooldown.String(),
			)
			return nil, f.err
		}
		// Cooldown expired, allow a fresh attempt.
		i.lastFailure = nil
	}

	att := &attempt{done: make(chan struct{})}
	i.inflight = att
	i.mu.Unlock()

	start := i.now()
	a, err := i.initialize(ctx)

	i.mu.Lock()
	att.app, att.err = a, err
	if err != nil {
		i.lastFailure = &failure{err: err, at: i.now()}
		metrics.RecordBootstrap("failure", i.now().Sub(start))
	} else {
		i.app = a
		metrics.RecordBootstrap("success", i.now().Sub(start))
	}
	i.inflight = nil
	i.mu.Unlock()

	close(att.done)
	return a, err
}

// Reset discards the current application instance and any cached failure so
// the next Get performs a fresh initialization. The adapter calls it after a
// request fails on a dead database connection.
//
// An in-flight attempt is not interrupted; its result is still shared with
// waiters, but a completed instance recorded before Reset is forgotten.
func (i *Initializer) Reset() {
	i.mu.Lock()
	old := i.app
	i.app = nil
	i.lastFailure = nil
	i.mu.Unlock()

	if old != nil {
		logger.Info("initializer reset, discarding application instance")
		if err := old.Close(); err != nil {
			logger.Warn("failed to close discarded application", "error", err)
		}
	}
}

// Initialized reports whether an application instance is currently held.
func (i *Initializer) Initialized() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.app != nil
}

// initialize runs one full initialization attempt: bounded, retried
// connection plus application construction.
func (i *Initializer) initialize(ctx context.Context) (*app.App, error) {
	var lastErr error

	for attemptNo := 1; attemptNo <= i.cfg.ConnectAttempts; attemptNo++ {
		if attemptNo > 1 {
			delay := i.backoff(attemptNo)
			logger.Info("retrying initialization",
				"attempt", attemptNo,
				"of", i.cfg.ConnectAttempts,
				"delay", delay.String(),
			)
			if err := i.sleep(ctx, delay); err != nil {
				return nil, NewDatabaseError(fmt.Errorf("initialization aborted: %w", err))
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, i.cfg.ConnectTimeout)
		a, err := i.buildApp(attemptCtx)
		cancel()

		if err == nil {
			logger.Info("application initialized", "attempt", attemptNo)
			return a, nil
		}

		kind, classified := KindOf(err)
		if !classified {
			err = NewDatabaseError(err)
			kind = KindDatabase
		}

		logger.Warn("initialization attempt failed",
			"attempt", attemptNo,
			"kind", kind.String(),
			"error", err,
		)

		// Only connectivity problems are worth retrying.
		if kind != KindDatabase {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

// backoff returns the delay before the given attempt number (2-based).
func (i *Initializer) backoff(attemptNo int) time.Duration {
	delay := i.cfg.BackoffBase
	for n := 2; n < attemptNo; n++ {
		delay *= 2
		if delay >= i.cfg.BackoffMax {
			return i.cfg.BackoffMax
		}
	}
	if delay > i.cfg.BackoffMax {
		return i.cfg.BackoffMax
	}
	return delay
}

// sleepContext sleeps for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
