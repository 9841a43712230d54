// Package graph implements the identity provider ports against the Microsoft
// Graph REST API.
package graph

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/metrics"
	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/port/outbound"
)

const (
	// DefaultBaseURL is the Graph v1.0 endpoint.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0"

	// maxResponseBodySize bounds how much of a response is read.
	maxResponseBodySize = 10 * 1024 * 1024 // 10MB

	// defaultRetryAfter is used when a throttled response has no Retry-After.
	defaultRetryAfter = 2 * time.Second

	// maxRetryAfter caps the server-requested wait.
	maxRetryAfter = 30 * time.Second
)

// Compile-time interface verification.
var _ outbound.Provider = (*Client)(nil)

// Client talks to Microsoft Graph. It implements outbound.Provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout for the HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if c.httpClient != nil && d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit bounds outgoing requests per second.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMaxRetries sets how often throttled (429) or unavailable (503)
// responses are retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithMetrics records request metrics.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Graph client. tokens supplies the ambient bearer token;
// calls that pass an explicit access token bypass it.
func NewClient(baseURL string, tokens oauth2.TokenSource, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		maxRetries: 2,
		sleep:      sleepContext,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// request is one Graph call.
type request struct {
	op     string // metrics label
	method string
	// path is relative to baseURL, or an absolute nextLink.
	path  string
	body  any
	token string // explicit bearer token, empty for ambient
	out   any
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return path
	}
	return c.baseURL + path
}

// do executes r, retrying throttled and unavailable responses.
func (c *Client) do(ctx context.Context, r request) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.ObserveProviderRequest(r.op, err, time.Since(start))
	}()

	var payload []byte
	if r.body != nil {
		payload, err = json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", r.op, err)
		}
	}

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		status, header, data, err := c.send(ctx, r, payload)
		if err != nil {
			return err
		}

		if (status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable) && attempt < c.maxRetries {
			wait := retryAfter(header)
			c.metrics.IncRetry(r.op)
			c.logger.Debug("graph request throttled, retrying",
				"operation", r.op,
				"status", status,
				"attempt", attempt+1,
				"wait", wait,
			)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		if status >= 400 {
			return decodeError(status, header, data)
		}
		if r.out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, r.out); err != nil {
				return fmt.Errorf("decode %s response: %w", r.op, err)
			}
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, r request, payload []byte) (int, http.Header, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.resolve(r.path), body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build %s request: %w", r.op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("client-request-id", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case r.token != "":
		req.Header.Set("Authorization", "Bearer "+r.token)
	case c.tokens != nil:
		tok, err := c.tokens.Token()
		if err != nil {
			return 0, nil, nil, fmt.Errorf("acquire token: %w", err)
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("%s request failed: %w", r.op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read %s response: %w", r.op, err)
	}
	return resp.StatusCode, resp.Header, data, nil
}

func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, maxRetryAfter)
	}
	if t, err := http.ParseTime(v); err == nil {
		return min(max(time.Until(t), 0), maxRetryAfter)
	}
	return defaultRetryAfter
}

// graphError is the Graph error envelope.
type graphError struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		InnerError struct {
			RequestID string `json:"request-id"`
		} `json:"innerError"`
	} `json:"error"`
}

func decodeError(status int, h http.Header, data []byte) error {
	pe := &outbound.ProviderError{StatusCode: status, RequestID: h.Get("request-id")}
	var ge graphError
	if err := json.Unmarshal(data, &ge); err == nil && ge.Error.Code != "" {
		pe.Code = ge.Error.Code
		pe.Message = ge.Error.Message
		if pe.RequestID == "" {
			pe.RequestID = ge.Error.InnerError.RequestID
		}
	} else {
		pe.Message = strings.TrimSpace(string(data))
		if pe.Message == "" {
			pe.Message = http.StatusText(status)
		}
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", outbound.ErrThrottled, pe)
	}
	return pe
}

// page is one page of a Graph collection.
type page[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
}

// listAll follows @odata.nextLink until the collection is exhausted.
func listAll[T any](ctx context.Context, c *Client, op, path string) ([]T, error) {
	var out []T
	next := path
	for next != "" {
		var p page[T]
		if err := c.do(ctx, request{op: op, method: http.MethodGet, path: next, out: &p}); err != nil {
			return nil, err
		}
		out = append(out, p.Value...)
		next = p.NextLink
	}
	return out, nil
}

// withQuery appends OData query options. Values are escaped with %20 for
// spaces, which Graph requires inside $filter.
func withQuery(path string, kv ...string) string {
	if len(kv) == 0 {
		return path
	}
	var b strings.Builder
	b.WriteString(path)
	for i := 0; i+1 < len(kv); i += 2 {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(kv[i])
		b.WriteByte('=')
		b.WriteString(strings.ReplaceAll(url.QueryEscape(kv[i+1]), "+", "%20"))
	}
	return b.String()
}

// quote renders an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, outbound.ErrNotFound)
}

// isEmpty reports whether err should be treated as an empty collection.
func isEmpty(err error) bool {
	return errors.Is(err, outbound.ErrNotFound)
}
