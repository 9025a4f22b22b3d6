package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mssimanju/powerharvest/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(ts *httptest.Server) *Client {
	return &Client{
		client:  ts.Client(),
		baseURL: ts.URL,
	}
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("Parsing", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/history", r.URL.Path)
			assert.Equal(t, "2023-05-10", r.URL.Query().Get("date"))
			assert.Equal(t, "power", r.URL.Query().Get("type"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"code": 200, "success": true,
				"data": [
					{"time": "2023-05-10T00:00:00Z", "value": 1.25},
					{"time": "2023-05-10T00:15:00Z", "value": null}
				]
			}`))
		}))
		defer ts.Close()

		samples, err := testClient(ts).History(ctx, types.DataTypePower, date)
		require.NoError(t, err)
		require.Len(t, samples, 2)
		assert.Equal(t, 1.25, *samples[0].Value)
		assert.Equal(t, date, samples[0].Timestamp)
		assert.Nil(t, samples[1].Value)
	})

	t.Run("NoData", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code": 200, "success": true, "data": []}`))
		}))
		defer ts.Close()

		samples, err := testClient(ts).History(ctx, types.DataTypeRainfall, date)
		require.NoError(t, err, "no data must not be an error")
		assert.Empty(t, samples)
	})

	t.Run("ServerErrorIsTransient", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer ts.Close()

		_, err := testClient(ts).History(ctx, types.DataTypePower, date)
		var netErr *types.NetworkError
		require.ErrorAs(t, err, &netErr)
	})

	t.Run("RateLimitedIsTransient", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer ts.Close()

		_, err := testClient(ts).History(ctx, types.DataTypePower, date)
		var netErr *types.NetworkError
		require.ErrorAs(t, err, &netErr)
	})

	t.Run("NotFoundIsFatal", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer ts.Close()

		_, err := testClient(ts).History(ctx, types.DataTypePower, date)
		var srcErr *types.SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Equal(t, http.StatusNotFound, srcErr.StatusCode)
	})

	t.Run("EnvelopeFailureIsFatal", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code": 400, "success": false, "message": "bad station"}`))
		}))
		defer ts.Close()

		_, err := testClient(ts).History(ctx, types.DataTypePower, date)
		var srcErr *types.SourceError
		require.ErrorAs(t, err, &srcErr)
		assert.Contains(t, srcErr.Error(), "bad station")
	})

	t.Run("MalformedBody", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}))
		defer ts.Close()

		_, err := testClient(ts).History(ctx, types.DataTypePower, date)
		var parseErr *types.ParseError
		require.ErrorAs(t, err, &parseErr)
	})

	t.Run("MalformedTimestamp", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"code": 200, "success": true, "data": [{"time": "yesterday", "value": 1}]}`))
		}))
		defer ts.Close()

		_, err := testClient(ts).History(ctx, types.DataTypePower, date)
		var parseErr *types.ParseError
		require.ErrorAs(t, err, &parseErr)
	})
}
