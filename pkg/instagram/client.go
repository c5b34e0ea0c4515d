package instagram

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	errs "igstories/pkg/errors"
	"igstories/pkg/logger"
	"igstories/pkg/ratelimit"
	"igstories/pkg/retry"
)

const (
	// DefaultTimeout bounds a single attempt
	DefaultTimeout = 60 * time.Second

	maxResponseSize = 32 << 20
)

// Client represents an Instagram API client bound to one credential bundle
type Client struct {
	httpClient *http.Client
	headers    http.Header
	baseURL    string
	userAgent  string
	timeout    time.Duration
	policy     *retry.Policy
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another API host
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryPolicy sets the retry policy applied to every request
func WithRetryPolicy(p *retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithLimiter shares a rate limiter with the client
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent overrides the default user agent
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient creates a client carrying creds on every request.
func NewClient(creds Credentials, opts ...Option) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", err)
	}

	c := &Client{
		baseURL:   BaseURL,
		userAgent: DefaultUserAgent,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.GetLogger()
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: newTransport(c.timeout)}
	}

	policy := retry.DefaultPolicy()
	if c.policy != nil {
		p := *c.policy
		policy = &p
	}
	if policy.Logger == nil {
		policy.Logger = c.logger
	}
	c.policy = policy
	c.headers = creds.Headers(c.userAgent)

	return c, nil
}

// newTransport bounds connecting and waiting for headers. Response bodies
// are bounded by the caller's context instead so large media can stream.
func newTransport(timeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = timeout
	t.ResponseHeaderTimeout = timeout
	return t
}

// BaseURL returns the API host the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// send performs one attempt. The caller owns the response body.
func (c *Client) send(ctx context.Context, rawURL string, attempt int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header = c.headers.Clone()

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithFields("HTTP request failed", map[string]interface{}{
			"method":   http.MethodGet,
			"url":      rawURL,
			"attempt":  attempt,
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, err
	}
	logger.LogRequest(c.logger, http.MethodGet, rawURL, resp.StatusCode, attempt, time.Since(start))
	return resp, nil
}

// transportError classifies a failed attempt. Cancellation of the run
// context is returned as is so it is never retried; anything else that
// kept a usable response from arriving is a RemoteError with status 0.
func transportError(ctx context.Context, rawURL string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if _, ok := err.(*errs.Error); ok {
		return err
	}
	return &errs.RemoteError{URL: rawURL, Err: err}
}

func statusError(resp *http.Response, rawURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return &errs.RemoteError{StatusCode: resp.StatusCode, URL: rawURL}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// Get fetches path, resolved against the base URL, and returns the status
// and decoded body. Transient failures are retried per the client policy;
// any other non-2xx status fails with *errors.RemoteError.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (int, []byte, error) {
	rawURL, err := resolveURL(c.baseURL, path, query)
	if err != nil {
		return 0, nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("invalid url %q: %v", path, err),
		}
	}

	var status int
	attempt := 0
	body, err := retry.DoWithResult(ctx, c.policy, func(ctx context.Context) ([]byte, error) {
		attempt++
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.send(attemptCtx, rawURL, attempt)
		if err != nil {
			return nil, transportError(ctx, rawURL, err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if err := statusError(resp, rawURL); err != nil {
			return nil, err
		}

		body, err := readBody(resp)
		if err != nil {
			return nil, transportError(ctx, rawURL, err)
		}
		return body, nil
	})
	if err != nil {
		return status, nil, err
	}
	return status, body, nil
}

// GetStream opens url for streaming. Retries stop once response headers
// arrive; the returned body is decoded and must be closed by the caller.
// A body that delivers nothing for the client timeout fails with ErrStalled.
func (c *Client) GetStream(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	resolved, err := resolveURL(c.baseURL, rawURL, nil)
	if err != nil {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: fmt.Sprintf("invalid url %q: %v", rawURL, err),
		}
	}

	attempt := 0
	return retry.DoWithResult(ctx, c.policy, func(ctx context.Context) (io.ReadCloser, error) {
		attempt++
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		streamCtx, cancel := context.WithCancel(ctx)
		resp, err := c.send(streamCtx, resolved, attempt)
		if err != nil {
			cancel()
			return nil, transportError(ctx, resolved, err)
		}
		if err := statusError(resp, resolved); err != nil {
			resp.Body.Close()
			cancel()
			return nil, err
		}

		body, err := decodeBody(resp)
		if err != nil {
			resp.Body.Close()
			cancel()
			return nil, err
		}
		return newIdleReader(body, c.timeout, cancel, resolved), nil
	})
}

// GetJSON fetches path and decodes it into target, returning the raw body.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target interface{}) ([]byte, error) {
	_, body, err := c.Get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"path":         path,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return body, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
		}
	}
	return body, nil
}

// FetchReelsTray fetches the story tray of followed users
func (c *Client) FetchReelsTray(ctx context.Context) (*Tray, []byte, error) {
	var tray Tray
	raw, err := c.GetJSON(ctx, ReelsTrayPath, nil, &tray)
	if err != nil {
		return nil, raw, fmt.Errorf("fetch reels tray: %w", err)
	}
	return &tray, raw, nil
}

// FetchReelMedia fetches one user's current reel
func (c *Client) FetchReelMedia(ctx context.Context, userID string) (*Reel, []byte, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("fetch reel media: empty user id")
	}

	var reel Reel
	raw, err := c.GetJSON(ctx, ReelMediaPath(userID), nil, &reel)
	if err != nil {
		return nil, raw, fmt.Errorf("fetch reel media for %s: %w", userID, err)
	}
	return &reel, raw, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxResponseSize {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("response exceeds %d bytes", maxResponseSize),
			Code:    resp.StatusCode,
		}
	}
	return data, nil
}

// decodeBody undoes the Content-Encoding. Requests set Accept-Encoding
// themselves, so net/http leaves compressed bodies untouched.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "", "identity":
		return resp.Body, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: fmt.Sprintf("gzip: %v", err), Code: resp.StatusCode}
		}
		return &decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil
	case "deflate":
		br := bufio.NewReader(resp.Body)
		if isZlibHeader(br) {
			zr, err := zlib.NewReader(br)
			if err != nil {
				return nil, &errs.Error{Type: errs.ErrorTypeParsing, Message: fmt.Sprintf("deflate: %v", err), Code: resp.StatusCode}
			}
			return &decodedBody{Reader: zr, closers: []io.Closer{zr, resp.Body}}, nil
		}
		fr := flate.NewReader(br)
		return &decodedBody{Reader: fr, closers: []io.Closer{fr, resp.Body}}, nil
	default:
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("unsupported content encoding %q", encoding),
			Code:    resp.StatusCode,
		}
	}
}

// isZlibHeader reports whether the stream starts with a zlib header.
// "deflate" is zlib-wrapped per RFC 9110 but some servers send raw flate.
func isZlibHeader(br *bufio.Reader) bool {
	h, err := br.Peek(2)
	if err != nil {
		return false
	}
	return h[0]&0x0f == 8 && (uint16(h[0])<<8|uint16(h[1]))%31 == 0
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
