// Package network talks to the origin server. Every failure to obtain a
// complete response is reported as a *domain.NetworkError; any HTTP status,
// including 4xx and 5xx, is a normal response.
package network

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/outpost/internal/core/domain"
)

// ErrBodyTooLarge is wrapped in a NetworkError when a response exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Fetcher is what strategies use to reach the network.
type Fetcher interface {
	Fetch(ctx context.Context, r *http.Request) (*domain.Snapshot, error)
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// HealthStatus summarizes recent upstream calls.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at,omitzero"`
	LastFailureAt time.Time     `json:"last_failure_at,omitzero"`
}

// Client fetches from one origin and buffers every response.
type Client struct {
	baseURL    string
	maxBody    int64
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewClient creates a client for baseURL. maxBody <= 0 disables the size limit.
func NewClient(baseURL string, timeout time.Duration, maxBody int64) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		maxBody: maxBody,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			// Redirects are the client's business, pass them through.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		health: HealthStatus{Available: true},
	}
}

// BaseURL returns the origin URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Fetch forwards an intercepted request to the origin.
func (c *Client) Fetch(ctx context.Context, r *http.Request) (*domain.Snapshot, error) {
	body, err := requestBody(r)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	header := r.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}
	// Let the transport negotiate compression so cached bodies are plain.
	header.Del("Accept-Encoding")

	return c.Do(ctx, r.Method, r.URL.RequestURI(), header, body)
}

// Get fetches path with no extra headers.
func (c *Client) Get(ctx context.Context, path string) (*domain.Snapshot, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil)
}

// Do sends one request to baseURL+path and buffers the answer.
func (c *Client) Do(ctx context.Context, method, path string, header http.Header, body []byte) (*domain.Snapshot, error) {
	start := time.Now()
	target := c.baseURL + path

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, &domain.NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := c.readBody(resp.Body)
	if err != nil {
		c.recordFailure()
		return nil, &domain.NetworkError{URL: target, Err: err}
	}

	c.recordSuccess(time.Since(start))

	respHeader := resp.Header.Clone()
	for _, h := range hopHeaders {
		respHeader.Del(h)
	}
	respHeader.Del("Content-Length")

	return &domain.Snapshot{
		Status: resp.StatusCode,
		Header: respHeader,
		Body:   data,
		Source: domain.SourceNetwork,
	}, nil
}

func (c *Client) readBody(body io.Reader) ([]byte, error) {
	if c.maxBody <= 0 {
		return io.ReadAll(body)
	}
	data, err := io.ReadAll(io.LimitReader(body, c.maxBody+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBody {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// GetHealth returns the client's health status.
func (c *Client) GetHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.requestCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Available = true

	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	c.health.Latency = c.totalLatency / time.Duration(c.successCount)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.requestCount++
	c.health.LastFailureAt = time.Now()
	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)

	if c.health.ErrorRate > 0.5 {
		c.health.Available = false
	}
}

// requestBody reads r's body without consuming it for later readers.
func requestBody(r *http.Request) ([]byte, error) {
	if r.GetBody != nil {
		rc, err := r.GetBody()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
