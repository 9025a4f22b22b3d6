// Package source talks to the remote readings API and wraps it with the
// process-wide concurrency bound, retries, and a circuit breaker.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mssimanju/powerharvest/pkg/common"
	"github.com/mssimanju/powerharvest/pkg/config"
	"github.com/mssimanju/powerharvest/pkg/log"
	"github.com/mssimanju/powerharvest/pkg/types"
)

const (
	historyPath = "api/v1/history"
	dateFormat  = "2006-01-02"
)

// Client performs raw reads against the historical readings API.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient builds a Client from the run configuration.
func NewClient(cfg config.Config) *Client {
	return &Client{
		client:  common.HTTPClient(cfg.HTTPTimeout, cfg.RequestHeaders),
		baseURL: "https://" + cfg.APIDomain,
	}
}

type historyResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Success bool           `json:"success"`
	Data    []historyPoint `json:"data"`
}

type historyPoint struct {
	Time  string   `json:"time"`
	Value *float64 `json:"value"`
}

// History returns every sample the source has for (dt, date). An empty slice
// with a nil error means the source genuinely has no data for that day, which
// callers must treat differently from a failed fetch.
func (c *Client) History(ctx context.Context, dt types.DataType, date time.Time) ([]types.Sample, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &types.SourceError{Message: fmt.Sprintf("invalid base URL: %v", err)}
	}
	u.Path, err = url.JoinPath(u.Path, historyPath)
	if err != nil {
		return nil, &types.SourceError{Message: fmt.Sprintf("invalid history path: %v", err)}
	}
	params := url.Values{}
	params.Set("date", date.UTC().Format(dateFormat))
	params.Set("type", string(dt))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, &types.SourceError{Message: err.Error()}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &types.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &types.NetworkError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.SourceError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.NetworkError{Err: err}
	}

	var hr historyResponse
	if err := json.Unmarshal(body, &hr); err != nil {
		log.Ctx(ctx).DebugContext(ctx, "failed to decode history response",
			slog.String("type", string(dt)), slog.Any("error", err))
		return nil, &types.ParseError{Err: err}
	}
	if !hr.Success && hr.Code != http.StatusOK {
		return nil, &types.SourceError{StatusCode: hr.Code, Message: hr.Message}
	}

	samples := make([]types.Sample, 0, len(hr.Data))
	for _, p := range hr.Data {
		ts, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			return nil, &types.ParseError{Err: fmt.Errorf("bad timestamp %q: %w", p.Time, err)}
		}
		samples = append(samples, types.Sample{Timestamp: ts.UTC(), Value: p.Value})
	}
	return samples, nil
}
