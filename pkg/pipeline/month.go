package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/types"
)

// monthDays enumerates the eligible days of a month: inside the configured
// range and strictly before today. An in-progress or future day is never
// attempted.
func (h *Harvester) monthDays(month time.Time) []time.Time {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	if first.Before(h.cfg.RangeStart) {
		first = h.cfg.RangeStart
	}
	if last.After(h.cfg.RangeEnd) {
		last = h.cfg.RangeEnd
	}

	today := h.today()
	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if !d.Before(today) {
			break
		}
		days = append(days, d)
	}
	return days
}

// harvestMonth fans the month's days out over the shared limiter, then
// merges, dedups, sorts, and writes the monthly artifact. Rejected days are
// simply absent from the result; they never abort the month.
func (h *Harvester) harvestMonth(ctx context.Context, month time.Time) types.DaySet {
	logger := log.Ctx(ctx).With(slog.String("month", month.Format("2006-01")))
	ctx = log.With(ctx, logger)

	days := h.monthDays(month)
	if len(days) == 0 {
		logger.InfoContext(ctx, "no eligible days in month")
		return nil
	}

	// bound day tasks too; the fetch semaphore already bounds network work
	// but there is no point materializing hundreds of idle day goroutines
	results := make([]types.DaySet, len(days))
	var g errgroup.Group
	g.SetLimit(h.cfg.MaxConcurrentRequests)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			results[i] = h.harvestDay(ctx, day)
			return nil
		})
	}
	// harvestDay never returns an error; days are isolated by design
	_ = g.Wait()

	accepted := make([]types.DaySet, 0, len(results))
	for _, ds := range results {
		if len(ds) > 0 {
			accepted = append(accepted, ds)
		}
	}
	logger.InfoContext(ctx, "month harvested",
		slog.Int("daysAttempted", len(days)),
		slog.Int("daysAccepted", len(accepted)))

	if len(accepted) == 0 {
		return nil
	}

	monthSet := types.Consolidate(accepted...)
	if _, err := h.writer.WriteMonth(ctx, month, monthSet); err != nil {
		// the data still flows into the range set; only the intermediate
		// artifact is lost
		logger.ErrorContext(ctx, "failed to write monthly artifact", slog.Any("error", err))
	}
	return monthSet
}
