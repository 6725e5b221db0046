// Package api is the REST integration path: a shared HTTP transport with
// request/response interceptors, a fixed-delay retry policy, and thin typed
// call groups for poems and users.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"shici/pkg/domain"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = time.Second
)

// TokenSource supplies the bearer token attached to outgoing requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenSourceFunc adapts a plain function to a TokenSource.
type TokenSourceFunc func() string

func (f TokenSourceFunc) Token() string { return f() }

// Config holds construction options for the REST client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	// RatePerSecond caps outgoing attempts when > 0.
	RatePerSecond float64
	Tokens        TokenSource
	// OnUnauthorized runs once per call that fails with 401, before the
	// error is returned. Typically clears the cached token and redirects
	// to the login route.
	OnUnauthorized func()
	Logger         *slog.Logger
}

// Client is the shared REST transport.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func()
	maxRetries     int
	retryDelay     time.Duration
	limiter        *rate.Limiter
	log            *slog.Logger
}

// New constructs a REST client from cfg, applying defaults for zero values.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("api: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	} else if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		http:           &http.Client{Timeout: timeout},
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
		maxRetries:     maxRetries,
		retryDelay:     retryDelay,
		limiter:        limiter,
		log:            logger,
	}, nil
}

// doJSON issues one logical request with the retry policy applied: up to
// maxRetries re-issues with a fixed delay, only for transient failures.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.log.Error("api request: encode payload", "method", method, "path", path, "err", err)
			return fmt.Errorf("encode payload: %w", err)
		}
		body = data
	}
	var lastErr error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(c.retryDelay):
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limit wait: %w", err)
			}
		}
		err := c.doOnce(ctx, method, path, query, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= c.maxRetries || !retryable(err) {
			return err
		}
		c.log.Warn("api request failed, retrying", "method", method, "path", path, "attempt", attempt+1, "err", err)
	}
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	q := url.Values{}
	for key, vals := range query {
		q[key] = vals
	}
	if method == http.MethodGet {
		// Cache-busting timestamp, mirroring the web client.
		q.Set("_t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	}
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		c.log.Error("api request: build", "method", method, "path", path, "err", err)
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		kind := domain.KindNetwork
		if isTimeout(err) {
			kind = domain.KindTimeout
			c.log.Error("api request: timeout", "method", method, "path", path, "err", err)
		} else {
			c.log.Error("api request: network", "method", method, "path", path, "err", err)
		}
		return &Error{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(resp, method, path)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response, method, path string) error {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Code    string `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		msg = resp.Status
	}
	apiErr := &Error{
		Status:  resp.StatusCode,
		Code:    strings.TrimSpace(errResp.Code),
		Message: msg,
		Kind:    classifyStatus(resp.StatusCode),
	}
	switch apiErr.Kind {
	case domain.KindUnauthorized:
		c.log.Warn("api: unauthorized, clearing session", "method", method, "path", path)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	case domain.KindForbidden:
		c.log.Error("api: forbidden", "path", path, "message", msg)
	case domain.KindNotFound:
		c.log.Error("api: not found", "path", path, "message", msg)
	case domain.KindServer:
		c.log.Error("api: server error", "path", path, "status", resp.StatusCode, "message", msg)
	default:
		c.log.Error("api: request error", "path", path, "status", resp.StatusCode, "message", msg)
	}
	return apiErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
