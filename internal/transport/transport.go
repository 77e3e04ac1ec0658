// Package transport provides the pooled JSON transport the session protocol
// runs over: one keep-alive session per remote origin, bounded timeouts, and
// credential-free error classification.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	apperrors "github.com/allisson/promptshield/internal/errors"
)

// maxErrorBodyBytes caps how much of an error response body is read for
// message extraction.
const maxErrorBodyBytes = 8 << 10

// Headers the transport owns. Caller-supplied extra headers are merged in
// but never override these.
const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	headerRequestID     = "X-Request-Id"
)

// Config holds transport construction parameters.
type Config struct {
	// BaseURL is the remote origin, e.g. "https://api.example.com".
	BaseURL string
	// Credential, when non-empty, is sent as a bearer token on every request.
	Credential string
	// Headers are extra headers merged into every request.
	Headers map[string]string
	// Timeout bounds every request. Zero means no transport-level deadline
	// beyond what the caller's context carries.
	Timeout time.Duration
	// RequestsPerSec enables a client-side token-bucket limiter when positive.
	RequestsPerSec float64
	// Burst is the limiter burst size; defaults to 1 when limiting is on.
	Burst int
	// Pool is the session registry to draw from. Nil means DefaultPool.
	Pool *Pool
	// Logger receives debug-level request logs. Bodies and authorization
	// headers are never logged.
	Logger *slog.Logger
}

// StatusError is a classified HTTP error response: the status code plus the
// best-effort extracted message from the body. It never carries request or
// response headers, which may include the credential.
type StatusError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Unwrap classifies StatusError under ErrTransport.
func (e *StatusError) Unwrap() error {
	return apperrors.ErrTransport
}

// Client delivers JSON requests to one remote origin over a pooled
// keep-alive session. Safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	credential string
	headers    map[string]string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a transport client for the origin in cfg.BaseURL,
// drawing the underlying session from the pool.
func NewClient(cfg Config) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "base URL must be an absolute URL")
	}

	pool := cfg.Pool
	if pool == nil {
		pool = DefaultPool
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	return &Client{
		baseURL:    baseURL,
		credential: cfg.Credential,
		headers:    cfg.Headers,
		timeout:    cfg.Timeout,
		httpClient: pool.Get(origin(baseURL)),
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Origin returns the scheme://host the client talks to.
func (c *Client) Origin() string {
	return origin(c.baseURL)
}

// PostJSON serializes body to JSON, POSTs it to path, and decodes the JSON
// response into out (which may be nil to discard the body).
//
// Status codes in [200,400) are success. Status >= 400 yields a StatusError
// carrying the best-effort extracted message. Timeouts abort the in-flight
// request and surface as an ErrTransport-classified error; the connection is
// released on all exit paths. No request is ever retried here.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("request body is not serializable: %v", err))
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

// GetJSON GETs path and decodes the JSON response into out. Same semantics
// as PostJSON without a request body.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return apperrors.Wrap(apperrors.ErrTransport, "rate limiter wait aborted")
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	requestURL := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("invalid request: %v", err))
	}

	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return apperrors.Wrap(apperrors.ErrTransport, fmt.Sprintf("request to %s timed out", path))
		}
		return apperrors.Wrap(apperrors.ErrTransport, fmt.Sprintf("request to %s failed: %v", path, err))
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{
			StatusCode: resp.StatusCode,
			Message:    extractErrorMessage(resp.Body),
		}
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	// A success status carrying a non-JSON body is the remote side breaking
	// the protocol, not a delivery failure.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(apperrors.ErrProtocolViolation, fmt.Sprintf("malformed response from %s: %v", path, err))
	}
	return nil
}

// setHeaders applies caller-supplied extra headers first, then the headers
// the transport owns, so extras can never override the content type, the
// credential, or the request id.
func (c *Client) setHeaders(req *http.Request) {
	for name, value := range c.headers {
		req.Header.Set(name, value)
	}

	req.Header.Set(headerContentType, "application/json")
	req.Header.Set(headerRequestID, uuid.NewString())
	if c.credential != "" {
		req.Header.Set(headerAuthorization, "Bearer "+c.credential)
	}
}

// extractErrorMessage pulls the best-effort message field from an error
// response body: a JSON "message", "error", or "detail" field if present,
// else the raw body text. Never includes headers.
func extractErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.Error != "":
			return parsed.Error
		case parsed.Detail != "":
			return parsed.Detail
		}
	}
	return strings.TrimSpace(string(raw))
}

// origin normalizes a URL to its scheme://host pooling key.
func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
