// Package notion is a small client for the parts of the Notion API a blog
// needs: database queries, page lookups and block children.
package notion

import (
	"bytes"
	"context"
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

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public API endpoint.
	DefaultBaseURL = "https://api.notion.com/v1"
	// DefaultVersion is the Notion-Version header sent with every call.
	DefaultVersion = "2022-06-28"

	defaultTimeout    = 10 * time.Second
	defaultMaxResults = 1000
	defaultRate       = 3 // requests per second, the API's documented average
	pageSize          = 100
	maxTreeDepth      = 8
	userAgent         = "pubnotion/1.0"
)

// Metrics receives per-request observations.
type Metrics interface {
	ObserveRequest(operation string, status int, d time.Duration)
	IncRetry(operation, reason string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, int, time.Duration) {}
func (nopMetrics) IncRetry(string, string)                   {}

// Client calls the Notion API. It holds no content state; every method is
// a read.
type Client struct {
	httpClient *http.Client
	baseURL    string
	version    string
	token      string
	timeout    time.Duration
	maxResults int
	retry      RetryPolicy
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    Metrics
	sleep      func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another endpoint (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithVersion overrides the Notion-Version header.
func WithVersion(v string) Option {
	return func(c *Client) { c.version = v }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds each individual attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithRateLimit caps outgoing requests per second. rate.Inf disables it.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(limit, burst) }
}

// WithMaxResults bounds how many results a paginated call accumulates.
func WithMaxResults(n int) Option {
	return func(c *Client) { c.maxResults = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a client authenticating with the integration token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		version:    DefaultVersion,
		token:      token,
		timeout:    defaultTimeout,
		maxResults: defaultMaxResults,
		retry:      DefaultRetryPolicy(),
		limiter:    rate.NewLimiter(defaultRate, defaultRate),
		logger:     slog.Default(),
		metrics:    nopMetrics{},
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryDatabase returns every page matching q, following cursors in order
// until the source reports no more results or the result bound is reached.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]Page, error) {
	path := "/databases/" + url.PathEscape(databaseID) + "/query"
	var pages []Page
	cursor := ""
	for {
		req := queryRequest{Query: q, StartCursor: cursor, PageSize: pageSize}
		var resp list[Page]
		if err := c.do(ctx, "query_database", http.MethodPost, path, req, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)
		if len(pages) > c.maxResults || (len(pages) == c.maxResults && resp.cursor() != "") {
			c.logger.Warn("notion: database query truncated",
				slog.String("database_id", databaseID),
				slog.Int("max_results", c.maxResults),
			)
			return pages[:c.maxResults], nil
		}
		cursor = resp.cursor()
		if cursor == "" {
			return pages, nil
		}
	}
}

// Page fetches a single page by ID.
func (c *Client) Page(ctx context.Context, pageID string) (Page, error) {
	var p Page
	err := c.do(ctx, "get_page", http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &p)
	return p, err
}

// BlockChildren returns the direct children of a block or page.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	base := "/blocks/" + url.PathEscape(blockID) + "/children"
	var blocks []Block
	cursor := ""
	for {
		v := url.Values{}
		v.Set("page_size", strconv.Itoa(pageSize))
		if cursor != "" {
			v.Set("start_cursor", cursor)
		}
		var resp list[Block]
		if err := c.do(ctx, "block_children", http.MethodGet, base+"?"+v.Encode(), nil, &resp); err != nil {
			return nil, err
		}
		blocks = append(blocks, resp.Results...)
		if len(blocks) > c.maxResults || (len(blocks) == c.maxResults && resp.cursor() != "") {
			c.logger.Warn("notion: block children truncated",
				slog.String("block_id", blockID),
				slog.Int("max_results", c.maxResults),
			)
			return blocks[:c.maxResults], nil
		}
		cursor = resp.cursor()
		if cursor == "" {
			return blocks, nil
		}
	}
}

// BlockTree returns the children of blockID with every nested level filled
// in, in declared order.
func (c *Client) BlockTree(ctx context.Context, blockID string) ([]Block, error) {
	return c.blockTree(ctx, blockID, 0)
}

func (c *Client) blockTree(ctx context.Context, blockID string, depth int) ([]Block, error) {
	blocks, err := c.BlockChildren(ctx, blockID)
	if err != nil {
		return nil, err
	}
	for i := range blocks {
		b := &blocks[i]
		if !b.HasChildren || b.Type == "child_page" || b.Type == "child_database" {
			continue
		}
		if depth+1 >= maxTreeDepth {
			c.logger.Warn("notion: block tree depth limit reached", slog.String("block_id", b.ID))
			continue
		}
		children, err := c.blockTree(ctx, b.ID, depth+1)
		if err != nil {
			return nil, fmt.Errorf("children of block %s: %w", b.ID, err)
		}
		b.Children = children
	}
	return blocks, nil
}

// do runs one logical call through the retry state machine.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("notion: encode request: %w", err)
		}
	}

	state := newRetryState(c.retry)
	for {
		err := c.attempt(ctx, op, method, path, payload, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch state.observe(err) {
		case phaseSucceeded:
			return nil
		case phaseFailed:
			return state.err
		case phaseRetryWait:
			c.metrics.IncRetry(op, retryReason(err))
			c.logger.Warn("notion: retrying request",
				slog.String("operation", op),
				slog.Int("attempt", state.attempt),
				slog.Duration("delay", state.delay),
				slog.String("error", err.Error()),
			)
			if err := c.sleep(ctx, state.delay); err != nil {
				return err
			}
			state.resume()
		}
	}
}

func (c *Client) attempt(ctx context.Context, op, method, path string, payload []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("notion: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, time.Since(start))
		return &transientError{err: err}
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(op, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrUnavailable, op, err)
	}
	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func retryReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return "server_error"
		}
		return "network"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
