// Package api is the typed gateway to the rooms/boards HTTP JSON API.
//
// Every function issues exactly one request: there are no retries and no caching.
// Failures are reduced to *Error once, here, so callers switch on Kind instead of
// probing response bodies.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const DefaultSessionCookie = "session"

type Client struct {
	baseURL *url.URL
	http    *http.Client
	log     *slog.Logger

	cookieName  string
	cookieValue string
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client. A cookie jar is added when missing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSessionCookie seeds the cookie jar with the session issued by the auth service.
func WithSessionCookie(name, value string) Option {
	return func(c *Client) {
		if name == "" {
			name = DefaultSessionCookie
		}
		c.cookieName, c.cookieValue = name, value
	}
}

// New creates a client for baseURL, e.g. "https://kanban.example.com" (no trailing /api).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}
	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.cookieValue != "" {
		c.http.Jar.SetCookies(u, []*http.Cookie{{Name: c.cookieName, Value: c.cookieValue, Path: "/"}})
	}
	return c, nil
}

// BaseURL returns the API origin the client talks to.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// Ping checks that the API is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// do sends one JSON request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindUnknown, Message: "could not encode request", Err: err}
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return &Error{Kind: KindUnknown, Message: "could not build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("http", "method", method, "path", path, "err", err, "dur_ms", time.Since(start).Milliseconds())
		return &Error{Kind: KindNetwork, Message: "network error", Err: err}
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	c.log.Debug("http", "method", method, "path", path, "status", res.StatusCode, "dur_ms", time.Since(start).Milliseconds())
	if err != nil {
		return &Error{Kind: KindNetwork, Status: res.StatusCode, Message: "could not read response", Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fromResponse(res.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindUnknown, Status: res.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return nil
}

func requireID(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return Invalid(field, fmt.Sprintf("%s is required", field))
	}
	return nil
}

func requirePositive(field string, v int64) error {
	if v <= 0 {
		return Invalid(field, fmt.Sprintf("%s must be a positive id", field))
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func esc(s string) string { return url.PathEscape(s) }
