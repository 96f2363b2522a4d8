package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

const defaultTimeout = 10 * time.Second

// connection pooling limits; a dashboard fans out one health request per server
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 32
	defaultIdleConnTimeout     = 60 * time.Second
)

// Credentials supplies authentication headers for each request.
type Credentials interface {
	Headers() map[string]string
}

// Response holds the raw outcome of one backend request.
type Response struct {
	// Body contains the response body, limited to 1MB.
	Body []byte

	// StatusCode is zero if the request failed before a response arrived.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error is set for transport failures only; HTTP error statuses are
	// reported through StatusCode.
	Error error
}

// OK reports whether the request completed with a 2xx status.
func (r Response) OK() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client talks to the backend under a fixed base URL.
type Client struct {
	httpClient *http.Client
	base       string
	creds      Credentials
	timeout    time.Duration
}

// NewClient returns a client for the backend rooted at base
// (for example "http://nas.lan:8000/api").
//
// A zero timeout selects the 10 second default. creds may be nil.
func NewClient(base string, creds Credentials, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			// no client timeout - per-request timeouts via context
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		base:    strings.TrimRight(base, "/"),
		creds:   creds,
		timeout: timeout,
	}
}

// Base returns the backend base URL.
func (c *Client) Base() string {
	return c.base
}

// Fetch performs one request against path (relative to the base URL, or an
// absolute http(s) URL) and returns a structured [Response].
//
// If body is non-nil it is JSON encoded. Fetch always returns a Response;
// transport errors are captured in its Error field.
func (c *Client) Fetch(ctx context.Context, method, path string, body any) Response {
	return c.fetch(ctx, method, c.url(path), body, true)
}

func (c *Client) fetch(ctx context.Context, method, target string, body any, auth bool) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Response{Latency: time.Since(start), Error: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return Response{Latency: time.Since(start), Error: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if auth && c.creds != nil {
		for key, value := range c.creds.Headers() {
			req.Header.Set(key, value)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{Latency: time.Since(start), Error: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	return Response{Body: data, StatusCode: resp.StatusCode, Latency: time.Since(start)}
}

// do runs a request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	resp := c.Fetch(ctx, method, path, in)
	if err := check(op, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%s: malformed response: %w", op, err)
	}
	return nil
}

// check converts a transport failure or non-2xx response into an error.
func check(op string, resp Response) error {
	if resp.Error != nil {
		return fmt.Errorf("%s: %w", op, resp.Error)
	}
	if !resp.OK() {
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}
	return nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.base + "/" + strings.TrimLeft(path, "/")
}

// Close closes idle connections. The client remains usable afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
