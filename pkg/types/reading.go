package types

import (
	"sort"
	"time"
)

// DataType identifies one series the remote source can return for a day.
type DataType string

const (
	DataTypePower          DataType = "power"
	DataTypeRainfall       DataType = "rainfall"
	DataTypeTemperature    DataType = "temperature"
	DataTypeSolarRadiation DataType = "solar_radiation"
	DataTypeWindSpeed      DataType = "wind_speed"
)

// RequiredDataTypes are the series a day cannot be assembled without.
// Wind speed is best-effort: stations frequently omit it.
var RequiredDataTypes = []DataType{
	DataTypePower,
	DataTypeRainfall,
	DataTypeTemperature,
	DataTypeSolarRadiation,
}

// AllDataTypes lists every series fetched for a day, required or not.
var AllDataTypes = []DataType{
	DataTypePower,
	DataTypeRainfall,
	DataTypeTemperature,
	DataTypeSolarRadiation,
	DataTypeWindSpeed,
}

// Required reports whether a missing or failed fetch of this type rejects the day.
func (d DataType) Required() bool {
	for _, r := range RequiredDataTypes {
		if d == r {
			return true
		}
	}
	return false
}

// Sample is one raw point of a single data type. Value is nil when the
// source reported the slot with no measurement.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     *float64  `json:"value"`
}

// Reading is one fully joined record across all data types at a timestamp.
// A nil field means the corresponding series had no value at this timestamp.
type Reading struct {
	Timestamp      time.Time `json:"timestamp"`
	Power          *float64  `json:"power"`
	Rainfall       *float64  `json:"rainfall"`
	Temperature    *float64  `json:"temperature"`
	SolarRadiation *float64  `json:"solarRadiation"`
	WindSpeed      *float64  `json:"windSpeed"`
}

// Field returns the value of the given series on this reading.
func (r *Reading) Field(dt DataType) *float64 {
	switch dt {
	case DataTypePower:
		return r.Power
	case DataTypeRainfall:
		return r.Rainfall
	case DataTypeTemperature:
		return r.Temperature
	case DataTypeSolarRadiation:
		return r.SolarRadiation
	case DataTypeWindSpeed:
		return r.WindSpeed
	}
	return nil
}

// SetField sets the value of the given series on this reading.
func (r *Reading) SetField(dt DataType, v *float64) {
	switch dt {
	case DataTypePower:
		r.Power = v
	case DataTypeRainfall:
		r.Rainfall = v
	case DataTypeTemperature:
		r.Temperature = v
	case DataTypeSolarRadiation:
		r.SolarRadiation = v
	case DataTypeWindSpeed:
		r.WindSpeed = v
	}
}

// DaySet is the ordered reading sequence for one calendar date. After Join or
// Consolidate the timestamps are strictly increasing with no duplicates.
type DaySet []Reading

// Join outer-joins per-type sample collections on timestamp. A timestamp
// present in one series but not another yields a partially-nil Reading.
// The result is sorted ascending.
func Join(byType map[DataType][]Sample) DaySet {
	byTS := make(map[time.Time]*Reading)
	for dt, samples := range byType {
		for _, s := range samples {
			ts := s.Timestamp.UTC()
			r, ok := byTS[ts]
			if !ok {
				r = &Reading{Timestamp: ts}
				byTS[ts] = r
			}
			r.SetField(dt, s.Value)
		}
	}

	ds := make(DaySet, 0, len(byTS))
	for _, r := range byTS {
		ds = append(ds, *r)
	}
	sort.Slice(ds, func(i, j int) bool {
		return ds[i].Timestamp.Before(ds[j].Timestamp)
	})
	return ds
}

// Consolidate concatenates the given sets in order, deduplicates by timestamp
// keeping the last-seen reading for any duplicate, and sorts ascending.
func Consolidate(sets ...DaySet) DaySet {
	var total int
	for _, s := range sets {
		total += len(s)
	}

	// later insertions win for duplicate timestamps
	byTS := make(map[time.Time]Reading, total)
	for _, s := range sets {
		for _, r := range s {
			byTS[r.Timestamp] = r
		}
	}

	out := make(DaySet, 0, len(byTS))
	for _, r := range byTS {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
