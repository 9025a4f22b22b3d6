package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/levenlabs/go-lflag"
)

const dateFormat = "2006-01-02"

// Config holds every run parameter. It is built once at startup, validated,
// and then threaded by value through all components.
type Config struct {
	// APIDomain is the host serving the historical readings API.
	APIDomain string `validate:"required"`

	// MaxConcurrentRequests bounds in-flight remote reads for the whole run.
	MaxConcurrentRequests int `validate:"gt=0"`

	// CacheDir holds one file per (data type, date) of raw samples.
	CacheDir string `validate:"required"`

	// CacheExpiryHours is the cache TTL.
	CacheExpiryHours int `validate:"gt=0"`

	// RangeStart and RangeEnd bound the harvested date span, inclusive.
	RangeStart time.Time `validate:"required"`
	RangeEnd   time.Time `validate:"required"`

	// ExpectedPointsPerDay is the nominal sample count for a complete day.
	ExpectedPointsPerDay int `validate:"gt=0"`

	// AllowedMissingPoints is the tolerance used by every validation rule.
	AllowedMissingPoints int `validate:"gte=0"`

	// TimeIntervalMinutes is the nominal spacing between samples.
	TimeIntervalMinutes int `validate:"gt=0"`

	// MaxRetryAttempts bounds attempts per fetch on transient failures.
	MaxRetryAttempts int `validate:"gte=1"`

	// RequestHeaders are extra headers sent on every remote read.
	RequestHeaders map[string]string

	// OutputDir receives the monthly and range CSV artifacts.
	OutputDir string `validate:"required"`

	// HTTPTimeout applies per HTTP exchange.
	HTTPTimeout time.Duration `validate:"gt=0"`

	// SweepInterval is how often the cache sweeper runs during a harvest.
	SweepInterval time.Duration `validate:"gt=0"`

	// MonthsConcurrent bounds months harvested in parallel. 1 is sequential.
	MonthsConcurrent int `validate:"gte=1"`

	// PrettyLogs switches the console handler instead of JSON.
	PrettyLogs bool

	rangeStartStr string
	rangeEndStr   string
}

// Configured registers all flags and returns the Config that will be
// populated once lflag.Configure runs.
func Configured() *Config {
	c := &Config{}

	apiDomain := lflag.RequiredString("api-domain", "Host of the historical readings API")
	cacheDir := lflag.String("cache-dir", "cache", "Directory for the raw payload cache")
	outputDir := lflag.String("output-dir", "output", "Directory for monthly and range CSV artifacts")
	rangeStart := lflag.RequiredString("range-start", "First date to harvest (YYYY-MM-DD)")
	rangeEnd := lflag.RequiredString("range-end", "Last date to harvest, inclusive (YYYY-MM-DD)")
	httpTimeout := lflag.Duration("http-timeout", 30*time.Second, "Timeout per HTTP exchange")
	sweepInterval := lflag.Duration("sweep-interval", 10*time.Minute, "Cadence of periodic cache sweeps")
	prettyLogs := lflag.Bool("pretty-logs", false, "Console log output instead of JSON")

	c.MaxConcurrentRequests = 5
	lflag.JSON(&c.MaxConcurrentRequests, "max-concurrent-requests", c.MaxConcurrentRequests, "Global bound on in-flight remote reads")
	c.CacheExpiryHours = 24
	lflag.JSON(&c.CacheExpiryHours, "cache-expiry-hours", c.CacheExpiryHours, "Cache TTL in hours")
	c.ExpectedPointsPerDay = 96
	lflag.JSON(&c.ExpectedPointsPerDay, "expected-points-per-day", c.ExpectedPointsPerDay, "Nominal sample count for a complete day")
	c.AllowedMissingPoints = 10
	lflag.JSON(&c.AllowedMissingPoints, "allowed-missing-points", c.AllowedMissingPoints, "Tolerance for missing/irregular/null/outlier points")
	c.TimeIntervalMinutes = 15
	lflag.JSON(&c.TimeIntervalMinutes, "time-interval-minutes", c.TimeIntervalMinutes, "Nominal minutes between samples")
	c.MaxRetryAttempts = 3
	lflag.JSON(&c.MaxRetryAttempts, "max-retry-attempts", c.MaxRetryAttempts, "Attempts per fetch on transient failures")
	c.MonthsConcurrent = 1
	lflag.JSON(&c.MonthsConcurrent, "months-concurrent", c.MonthsConcurrent, "Months harvested in parallel (1 = sequential)")
	c.RequestHeaders = map[string]string{}
	lflag.JSON(&c.RequestHeaders, "request-headers", c.RequestHeaders, "JSON map of extra headers sent on every remote read")

	lflag.Do(func() {
		c.APIDomain = *apiDomain
		c.CacheDir = *cacheDir
		c.OutputDir = *outputDir
		c.rangeStartStr = *rangeStart
		c.rangeEndStr = *rangeEnd
		c.HTTPTimeout = *httpTimeout
		c.SweepInterval = *sweepInterval
		c.PrettyLogs = *prettyLogs
	})

	return c
}

// Validate parses the date range and checks every parameter. Any error here
// is fatal to the run; nothing else is.
func (c *Config) Validate() error {
	if c.rangeStartStr != "" {
		start, err := time.Parse(dateFormat, c.rangeStartStr)
		if err != nil {
			return fmt.Errorf("invalid range-start (%s): %w", c.rangeStartStr, err)
		}
		c.RangeStart = start.UTC()
	}
	if c.rangeEndStr != "" {
		end, err := time.Parse(dateFormat, c.rangeEndStr)
		if err != nil {
			return fmt.Errorf("invalid range-end (%s): %w", c.rangeEndStr, err)
		}
		c.RangeEnd = end.UTC()
	}

	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.RangeEnd.Before(c.RangeStart) {
		return fmt.Errorf("range-end (%s) is before range-start (%s)", c.rangeEndStr, c.rangeStartStr)
	}
	if c.AllowedMissingPoints >= c.ExpectedPointsPerDay {
		return fmt.Errorf("allowed-missing-points (%d) must be below expected-points-per-day (%d)",
			c.AllowedMissingPoints, c.ExpectedPointsPerDay)
	}
	return nil
}

// CacheTTL returns the cache expiry as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheExpiryHours) * time.Hour
}

// Interval returns the nominal sample spacing as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(c.TimeIntervalMinutes) * time.Minute
}

// MinPointsPerDay is the smallest point count a day may have and still pass
// validation.
func (c Config) MinPointsPerDay() int {
	return c.ExpectedPointsPerDay - c.AllowedMissingPoints
}
