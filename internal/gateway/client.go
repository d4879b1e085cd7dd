package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/music-gateway/internal/infrastructure/config"
)

const defaultTimeout = 10 * time.Second

// Logger is the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Caller is the subset of Client used by lists and zones.
type Caller interface {
	Call(ctx context.Context, method, path string, body, out any) error
}

var _ Caller = (*Client)(nil)

// Client calls the backend REST API rooted at a base URL.
//
// Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  Logger
}

// New creates a client for the configured backend.
//
// Redirects are not followed; a 3xx answer is reported as a redirect
// BackendError.
func New(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used for per-call debug lines.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// BaseURL returns the backend base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call issues method on baseURL+path.
//
// For POST and PUT, body is JSON-encoded (a nil body encodes as null).
// When out is non-nil, the 2xx response body is decoded into it.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if method == http.MethodPost || method == http.MethodPut {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: building request %s %s: %w", ErrTransport, method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s %s: %w", ErrTransport, method, path, err)
	}

	c.logger.Debug("backend call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Type:   classifyStatus(resp.StatusCode),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decoding %s %s: %w", ErrParse, method, path, err)
	}
	return nil
}
