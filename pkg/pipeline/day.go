package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/quality"
	"github.com/mssimanju/powerharvest/pkg/types"
)

// harvestDay assembles, validates, and (on acceptance) caches one date.
// A rejected day returns nil and contributes nothing; the failure never
// escapes as an error so sibling days keep running.
func (h *Harvester) harvestDay(ctx context.Context, date time.Time) types.DaySet {
	logger := log.Ctx(ctx).With(slog.String("date", date.Format("2006-01-02")))
	ctx = log.With(ctx, logger)

	byType := make(map[types.DataType][]types.Sample)
	fetched := make(map[types.DataType]bool)

	var toFetch []types.DataType
	for _, dt := range types.AllDataTypes {
		if samples, ok := h.cache.Get(ctx, dt, date); ok {
			byType[dt] = samples
			continue
		}
		toFetch = append(toFetch, dt)
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		fetchFails []types.DataType
	)
	for _, dt := range toFetch {
		wg.Add(1)
		go func(dt types.DataType) {
			defer wg.Done()
			samples, err := h.fetcher.Fetch(ctx, dt, date)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if dt.Required() {
					fetchFails = append(fetchFails, dt)
				}
				logger.WarnContext(ctx, "fetch failed",
					slog.String("type", string(dt)),
					slog.Bool("required", dt.Required()),
					slog.Any("error", err))
				return
			}
			byType[dt] = samples
			fetched[dt] = true
		}(dt)
	}
	wg.Wait()

	if len(fetchFails) > 0 {
		logger.WarnContext(ctx, "day rejected",
			slog.String("reason", "fetch failure"),
			slog.Any("failedTypes", fetchFails))
		return nil
	}

	ds := types.Join(byType)
	verdict := quality.Validate(ds, date, h.cfg)
	if !verdict.Accepted {
		logger.WarnContext(ctx, "day rejected",
			slog.String("reason", verdict.Reason),
			slog.Int("points", verdict.Diagnostics.PointCount),
			slog.Int("irregularGaps", verdict.Diagnostics.IrregularGaps),
			slog.Int("powerOutliers", verdict.Diagnostics.PowerOutliers))
		return nil
	}

	// write back only the types fetched this run; cache hits are already on
	// disk and rewriting them would reset their age
	for dt := range fetched {
		if err := h.cache.Put(ctx, dt, date, byType[dt]); err != nil {
			logger.WarnContext(ctx, "failed to cache payload",
				slog.String("type", string(dt)), slog.Any("error", err))
		}
	}

	logger.DebugContext(ctx, "day accepted", slog.Int("points", len(ds)))
	return ds
}
