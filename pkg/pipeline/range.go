package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/types"
)

// months enumerates the first-of-month dates covering the configured range.
func (h *Harvester) months() []time.Time {
	var months []time.Time
	m := time.Date(h.cfg.RangeStart.Year(), h.cfg.RangeStart.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !m.After(h.cfg.RangeEnd) {
		months = append(months, m)
		m = m.AddDate(0, 1, 0)
	}
	return months
}

// Run harvests the whole configured range and writes the final artifact.
// Day and month failures degrade the dataset but never abort the run; the
// returned error only reflects being unable to write the final output.
func (h *Harvester) Run(ctx context.Context) (types.DaySet, error) {
	sweeper := h.startSweeper(ctx)
	defer sweeper.Stop()

	months := h.months()
	log.Ctx(ctx).InfoContext(ctx, "starting harvest",
		slog.String("start", h.cfg.RangeStart.Format("2006-01-02")),
		slog.String("end", h.cfg.RangeEnd.Format("2006-01-02")),
		slog.Int("months", len(months)),
		slog.Int("maxConcurrentRequests", h.cfg.MaxConcurrentRequests))

	monthSets := make([]types.DaySet, len(months))
	if h.cfg.MonthsConcurrent > 1 {
		// months may run in parallel; the fetch bound is still the single
		// shared semaphore inside the fetcher
		var g errgroup.Group
		g.SetLimit(h.cfg.MonthsConcurrent)
		for i, m := range months {
			i, m := i, m
			g.Go(func() error {
				monthSets[i] = h.harvestMonth(ctx, m)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, m := range months {
			monthSets[i] = h.harvestMonth(ctx, m)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// concatenate in month order; each month set is already sorted and
	// months never overlap, so no range-wide re-sort is needed
	var rangeSet types.DaySet
	for _, ms := range monthSets {
		rangeSet = append(rangeSet, ms...)
	}

	if _, err := h.writer.WriteRange(ctx, h.cfg.RangeStart, h.cfg.RangeEnd, rangeSet); err != nil {
		return nil, fmt.Errorf("failed to write range artifact: %w", err)
	}

	log.Ctx(ctx).InfoContext(ctx, "harvest complete", slog.Int("rows", len(rangeSet)))
	return rangeSet, nil
}

// startSweeper runs one sweep immediately and then periodic housekeeping
// sweeps for the duration of the run.
func (h *Harvester) startSweeper(ctx context.Context) *gocron.Scheduler {
	if _, err := h.cache.Sweep(ctx); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "initial cache sweep failed", slog.Any("error", err))
	}

	s := gocron.NewScheduler(time.UTC)
	_, err := s.Every(h.cfg.SweepInterval).Do(func() {
		if _, err := h.cache.Sweep(ctx); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "cache sweep failed", slog.Any("error", err))
		}
	})
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to schedule cache sweeper", slog.Any("error", err))
	}
	s.StartAsync()
	return s
}
