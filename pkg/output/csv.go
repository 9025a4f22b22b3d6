// Package output writes the monthly and range-wide tabular artifacts.
package output

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/types"
)

var header = []string{"timestamp", "power", "rainfall", "temperature", "solar_radiation", "wind_speed"}

// Writer emits CSV artifacts into a single output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// WriteMonth writes the artifact for one month and returns its path.
func (w *Writer) WriteMonth(ctx context.Context, month time.Time, ds types.DaySet) (string, error) {
	path := filepath.Join(w.dir, month.Format("2006-01")+".csv")
	if err := w.write(path, ds); err != nil {
		return "", err
	}
	log.Ctx(ctx).InfoContext(ctx, "wrote monthly artifact",
		slog.String("path", path), slog.Int("rows", len(ds)))
	return path, nil
}

// WriteRange writes the final artifact covering the whole span.
func (w *Writer) WriteRange(ctx context.Context, start, end time.Time, ds types.DaySet) (string, error) {
	name := fmt.Sprintf("dataset_%s_%s.csv", start.Format("2006-01-02"), end.Format("2006-01-02"))
	path := filepath.Join(w.dir, name)
	if err := w.write(path, ds); err != nil {
		return "", err
	}
	log.Ctx(ctx).InfoContext(ctx, "wrote range artifact",
		slog.String("path", path), slog.Int("rows", len(ds)))
	return path, nil
}

// write lands the file atomically so a crashed run never leaves a truncated
// artifact behind.
func (w *Writer) write(path string, ds types.DaySet) error {
	tmp, err := os.CreateTemp(w.dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp artifact: %w", err)
	}

	cw := csv.NewWriter(tmp)
	writeErr := cw.Write(header)
	for i := range ds {
		if writeErr != nil {
			break
		}
		writeErr = cw.Write(row(&ds[i]))
	}
	cw.Flush()
	if writeErr == nil {
		writeErr = cw.Error()
	}
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write artifact %s: %w", path, writeErr)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename artifact: %w", err)
	}
	return nil
}

func row(r *types.Reading) []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		cell(r.Power),
		cell(r.Rainfall),
		cell(r.Temperature),
		cell(r.SolarRadiation),
		cell(r.WindSpeed),
	}
}

// cell renders a nullable value; nil becomes an empty cell.
func cell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
