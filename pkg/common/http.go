package common

import (
	_ "embed"
	"net/http"
	"strings"
	"time"
)

//go:embed VERSION
var version string

type headerTransport struct {
	transport http.RoundTripper
	userAgent string
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.transport.RoundTrip(req)
}

// HTTPClient returns an http client with a default user-agent and the given
// extra headers applied to every outgoing request. Some station APIs refuse
// requests without a referer or browser-like headers, so they are configurable.
func HTTPClient(timeout time.Duration, headers map[string]string) *http.Client {
	v := strings.TrimSpace(version)
	userAgent := "PowerHarvest/" + v

	return &http.Client{
		Transport: &headerTransport{
			transport: http.DefaultTransport,
			userAgent: userAgent,
			headers:   headers,
		},
		Timeout: timeout,
	}
}
