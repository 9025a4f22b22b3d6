package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/mssimanju/powerharvest/pkg/config"
	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/types"
)

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// HistoryClient is the raw read against the remote source. Implemented by
// Client; swapped for a fake in tests.
type HistoryClient interface {
	History(ctx context.Context, dt types.DataType, date time.Time) ([]types.Sample, error)
}

// Fetcher performs one bounded, retried remote read per call. The semaphore
// is the process-wide limiter: it must be the single instance created at the
// top of the run, never one per month.
type Fetcher struct {
	client      HistoryClient
	sem         *semaphore.Weighted
	breaker     *gobreaker.CircuitBreaker
	maxAttempts int

	// shrunk in tests
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewFetcher wires the shared limiter and a circuit breaker around the client.
func NewFetcher(client HistoryClient, sem *semaphore.Weighted, cfg config.Config) *Fetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "history-api",
		MaxRequests: 5,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Fetcher{
		client:         client,
		sem:            sem,
		breaker:        cb,
		maxAttempts:    cfg.MaxRetryAttempts,
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
}

// Fetch acquires one limiter slot, then attempts the read up to the
// configured attempts with exponential backoff on transient failures. The
// slot is held across retries so backoff time counts against the bound.
// Source and parse failures propagate immediately.
func (f *Fetcher) Fetch(ctx context.Context, dt types.DataType, date time.Time) ([]types.Sample, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.initialBackoff << (attempt - 1)
			if delay > f.maxBackoff {
				delay = f.maxBackoff
			}
			log.Ctx(ctx).DebugContext(ctx, "retrying fetch",
				slog.String("type", string(dt)),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", delay))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.client.History(ctx, dt, date)
		})
		if err == nil {
			return result.([]types.Sample), nil
		}

		// An open breaker means the source is down; retrying inside this
		// fetch would only hold the limiter slot for nothing.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &types.NetworkError{Err: err}
		}

		var netErr *types.NetworkError
		if !errors.As(err, &netErr) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
