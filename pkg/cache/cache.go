// Package cache persists raw per-day, per-type sample payloads between runs
// so re-harvesting a range does not re-fetch days that already succeeded.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/types"
)

const dateFormat = "2006-01-02"

// Store is a TTL-expiring file cache with one entry per (data type, date).
// Writes are atomic (temp file + rename) so a concurrent reader of the same
// key never observes a partially written entry.
type Store struct {
	dir string
	ttl time.Duration

	// now is swappable for TTL tests
	now func() time.Time
}

type entry struct {
	Type     types.DataType `json:"type"`
	Date     string         `json:"date"`
	StoredAt time.Time      `json:"storedAt"`
	Samples  []types.Sample `json:"samples"`
}

// New creates the cache directory if needed and returns a Store.
func New(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir %s: %w", dir, err)
	}
	return &Store{
		dir: dir,
		ttl: ttl,
		now: time.Now,
	}, nil
}

func (s *Store) key(dt types.DataType, date time.Time) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", dt, date.UTC().Format(dateFormat)))
}

// Get returns the cached samples for (dt, date) and whether they were found.
// A stale or corrupt entry is deleted and reported as absent; corruption is
// never propagated as an error.
func (s *Store) Get(ctx context.Context, dt types.DataType, date time.Time) ([]types.Sample, bool) {
	path := s.key(dt, date)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Ctx(ctx).WarnContext(ctx, "failed to read cache entry",
				slog.String("path", path), slog.Any("error", err))
		}
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "corrupt cache entry, treating as miss",
			slog.String("path", path), slog.Any("error", err))
		_ = os.Remove(path)
		return nil, false
	}

	if s.now().Sub(e.StoredAt) > s.ttl {
		log.Ctx(ctx).DebugContext(ctx, "cache entry expired",
			slog.String("path", path), slog.Time("storedAt", e.StoredAt))
		_ = os.Remove(path)
		return nil, false
	}

	return e.Samples, true
}

// Put atomically stores the samples for (dt, date).
func (s *Store) Put(ctx context.Context, dt types.DataType, date time.Time, samples []types.Sample) error {
	e := entry{
		Type:     dt,
		Date:     date.UTC().Format(dateFormat),
		StoredAt: s.now(),
		Samples:  samples,
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := s.key(dt, date)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename cache file: %w", err)
	}

	log.Ctx(ctx).DebugContext(ctx, "cached payload",
		slog.String("type", string(dt)), slog.String("date", e.Date))
	return nil
}

// Sweep deletes every entry older than the TTL and returns how many were
// removed. Unparseable entries are removed too.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache dir: %w", err)
	}

	removed := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, de.Name())

		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err == nil && s.now().Sub(e.StoredAt) <= s.ttl {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}

	if removed > 0 {
		log.Ctx(ctx).InfoContext(ctx, "cache sweep removed stale entries", slog.Int("removed", removed))
	}
	return removed, nil
}
