// Package quality decides whether a day's merged readings are usable. It
// only gates: data is never modified or imputed here.
package quality

import (
	"fmt"
	"time"

	"github.com/mssimanju/powerharvest/pkg/config"
	"github.com/mssimanju/powerharvest/pkg/types"
)

// Physically plausible generation range in kW for the monitored array.
// Slightly negative values show up from inverter self-consumption at night.
const (
	powerOutlierLow  = -1.0
	powerOutlierHigh = 50.0
)

// Validate applies every acceptance rule to the day. All diagnostics are
// computed even after a rule fails so rejections are fully explainable; the
// first failing rule in order supplies the verdict reason.
func Validate(ds types.DaySet, date time.Time, cfg config.Config) types.Verdict {
	diag := types.Diagnostics{
		PointCount: len(ds),
		NullCounts: make(map[types.DataType]int),
	}

	interval := cfg.Interval()
	for i := 1; i < len(ds); i++ {
		if ds[i].Timestamp.Sub(ds[i-1].Timestamp) != interval {
			diag.IrregularGaps++
		}
	}

	for _, dt := range types.RequiredDataTypes {
		for i := range ds {
			if ds[i].Field(dt) == nil {
				diag.NullCounts[dt]++
			}
		}
	}

	for i := range ds {
		if p := ds[i].Power; p != nil && (*p < powerOutlierLow || *p > powerOutlierHigh) {
			diag.PowerOutliers++
		}
	}

	verdict := types.Verdict{Accepted: true, Diagnostics: diag}
	reject := func(reason string) {
		if verdict.Accepted {
			verdict.Accepted = false
			verdict.Reason = reason
		}
	}

	if len(ds) == 0 {
		reject("no data")
	}
	if len(ds) < cfg.MinPointsPerDay() {
		reject("insufficient points")
	}
	if diag.IrregularGaps > cfg.AllowedMissingPoints {
		reject("irregular intervals")
	}
	for _, dt := range types.RequiredDataTypes {
		if diag.NullCounts[dt] > cfg.AllowedMissingPoints {
			reject(fmt.Sprintf("too many nulls in %s", dt))
		}
	}
	if diag.PowerOutliers > cfg.AllowedMissingPoints {
		reject("too many power outliers")
	}

	return verdict
}
