// Package pipeline coordinates cache, fetcher, validator, and output into
// the day -> month -> range harvest.
package pipeline

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mssimanju/powerharvest/pkg/config"
	"github.com/mssimanju/powerharvest/pkg/source"
	"github.com/mssimanju/powerharvest/pkg/types"
)

// Fetcher performs one bounded, retried remote read.
type Fetcher interface {
	Fetch(ctx context.Context, dt types.DataType, date time.Time) ([]types.Sample, error)
}

// Cache is the expiring raw payload store.
type Cache interface {
	Get(ctx context.Context, dt types.DataType, date time.Time) ([]types.Sample, bool)
	Put(ctx context.Context, dt types.DataType, date time.Time, samples []types.Sample) error
	Sweep(ctx context.Context) (int, error)
}

// ArtifactWriter persists the monthly and range outputs.
type ArtifactWriter interface {
	WriteMonth(ctx context.Context, month time.Time, ds types.DaySet) (string, error)
	WriteRange(ctx context.Context, start, end time.Time, ds types.DaySet) (string, error)
}

// Harvester drives one full-range run. The fetch limiter lives here: it is
// created exactly once per Harvester and shared by every day in every month.
type Harvester struct {
	cfg     config.Config
	fetcher Fetcher
	cache   Cache
	writer  ArtifactWriter

	// swappable for tests
	now func() time.Time
}

// New wires a Harvester. The semaphore built here is the process-wide fetch
// bound; constructing it anywhere closer to the per-month work would quietly
// multiply the permitted concurrency.
func New(cfg config.Config, client source.HistoryClient, cache Cache, writer ArtifactWriter) *Harvester {
	sem := semaphore.NewWeighted(int64(cfg.MaxConcurrentRequests))
	return &Harvester{
		cfg:     cfg,
		fetcher: source.NewFetcher(client, sem, cfg),
		cache:   cache,
		writer:  writer,
		now:     time.Now,
	}
}

// today returns the current UTC date at midnight; only days strictly before
// it are ever attempted.
func (h *Harvester) today() time.Time {
	return h.now().UTC().Truncate(24 * time.Hour)
}
