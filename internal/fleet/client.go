package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 10 * time.Second

// Client talks to the device manager's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the server at baseURL (e.g. "http://localhost:5000").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDevices fetches the full device list snapshot.
func (c *Client) ListDevices(ctx context.Context) ([]Device, error) {
	var devices []Device
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &devices); err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []Device{}
	}
	return devices, nil
}

// StartDevice asks the server to start the device at index.
func (c *Client) StartDevice(ctx context.Context, index int) (*ActionResult, error) {
	return c.action(ctx, fmt.Sprintf("/api/device/%d/start", index), nil)
}

// StopDevice asks the server to stop the device at index.
func (c *Client) StopDevice(ctx context.Context, index int) (*ActionResult, error) {
	return c.action(ctx, fmt.Sprintf("/api/device/%d/stop", index), nil)
}

// DeleteDevice asks the server to remove the device at index.
func (c *Client) DeleteDevice(ctx context.Context, index int) (*ActionResult, error) {
	return c.action(ctx, fmt.Sprintf("/api/device/%d/delete", index), nil)
}

// AddDevice registers a new device. The server assigns its index and ports.
func (c *Client) AddDevice(ctx context.Context, name, udid string) (*ActionResult, error) {
	return c.action(ctx, "/api/device/add", AddRequest{Name: name, UDID: udid})
}

// FetchLogs fetches the current log tail of the device at index.
func (c *Client) FetchLogs(ctx context.Context, index int) (*LogSnapshot, error) {
	var snap LogSnapshot
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/device/%d/logs", index), nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchDetailedStats fetches the per-category counters of the device at index.
func (c *Client) FetchDetailedStats(ctx context.Context, index int) (*DetailedStats, error) {
	var stats DetailedStats
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/device/%d/stats/detailed", index), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// FetchStats fetches the summary counters of the device at index.
func (c *Client) FetchStats(ctx context.Context, index int) (*Stats, error) {
	var stats Stats
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/device/%d/stats", index), nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// CleanupLogs asks the server to delete log files larger than maxSizeMB.
func (c *Client) CleanupLogs(ctx context.Context, maxSizeMB int) (*ActionResult, error) {
	return c.action(ctx, "/api/logs/cleanup", CleanupRequest{MaxSizeMB: maxSizeMB})
}

// Shutdown asks the server to stop every running device.
func (c *Client) Shutdown(ctx context.Context) (*ActionResult, error) {
	return c.action(ctx, "/api/shutdown", nil)
}

func (c *Client) action(ctx context.Context, path string, body any) (*ActionResult, error) {
	var result ActionResult
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	endpoint := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Endpoint: endpoint, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Str("endpoint", endpoint).Err(err).Msg("request failed")
		return &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request complete")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("status %s", resp.Status),
		}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil {
			terr.ServerMessage = payload.Error
		}
		return terr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}

// IsTransportError reports whether err is (or wraps) a *TransportError.
func IsTransportError(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}
