// Package supabase is the backend-as-a-service integration path: GoTrue-style
// auth plus PostgREST-style relational operations on the poems, profiles,
// favorites, likes, and comments tables. It is an alternative to the REST
// path in internal/api; the stores are wired to exactly one of the two.
package supabase

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
	"strings"
	"time"

	"shici/pkg/domain"
)

const defaultTimeout = 10 * time.Second

// Config holds construction options for the backend-service client.
type Config struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co.
	URL string
	// AnonKey authenticates the client itself; user tokens ride on top.
	AnonKey string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client talks to the hosted backend service.
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     *slog.Logger
}

// New constructs a client. Missing URL or key is a hard failure: the app
// cannot start without its backend configuration.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("supabase: project URL is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, errors.New("supabase: anon key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		anonKey: cfg.AnonKey,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}, nil
}

// Error represents a classified backend-service failure.
type Error struct {
	Status  int
	Code    string
	Message string
	Kind    domain.ErrorKind
}

func (e *Error) Error() string {
	return e.Message
}

// ErrorKind reports the closed failure class for this error.
func (e *Error) ErrorKind() domain.ErrorKind {
	return e.Kind
}

// send issues one request with the service headers attached and classified
// error handling. Callers own the returned body.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, token string, extra http.Header, payload any) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	bearer := token
	if bearer == "" {
		bearer = c.anonKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, vals := range extra {
		for _, v := range vals {
			req.Header.Add(key, v)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		kind := domain.KindNetwork
		if isTimeout(err) {
			kind = domain.KindTimeout
		}
		return nil, &Error{Kind: kind, Message: err.Error()}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// decodeError maps the service's error body (GoTrue and PostgREST use
// different shapes) onto one classified Error.
func decodeError(resp *http.Response) *Error {
	var body struct {
		Message          string          `json:"message"`
		Msg              string          `json:"msg"`
		ErrorStr         string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		ErrorCode        string          `json:"error_code"`
		Code             json.RawMessage `json:"code"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	code := body.ErrorCode
	if code == "" {
		code = strings.Trim(string(body.Code), `"`)
	}
	if code == "" {
		code = body.ErrorStr
	}
	msg := firstNonEmpty(body.Message, body.Msg, body.ErrorDescription, body.ErrorStr, resp.Status)

	kind := statusKind(resp.StatusCode)
	switch code {
	case "email_not_confirmed":
		kind = domain.KindUnverifiedEmail
	case "invalid_credentials", "invalid_grant":
		kind = domain.KindBadCredentials
	}
	return &Error{Status: resp.StatusCode, Code: code, Message: msg, Kind: kind}
}

func statusKind(status int) domain.ErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return domain.KindBadRequest
	case status == http.StatusUnauthorized:
		return domain.KindUnauthorized
	case status == http.StatusForbidden:
		return domain.KindForbidden
	case status == http.StatusNotFound:
		return domain.KindNotFound
	case status == http.StatusConflict:
		return domain.KindConflict
	case status >= 500:
		return domain.KindServer
	default:
		return domain.KindOther
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
