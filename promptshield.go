// Package promptshield anonymizes sensitive text before it is sent to a
// third-party text-processing service and transparently restores the
// original values in that service's output.
//
// The remote service performs the actual PII detection and substitution;
// this package implements the client-side session protocol: it binds the
// anonymize and restore exchanges through a server-issued correlation token,
// optionally layers end-to-end transit encryption on top (activated simply
// by configuring private key material), and runs both over a pooled
// keep-alive transport shared across concurrent callers.
//
// Typical use:
//
//	cfg := &promptshield.Config{
//	    APIURL:     "https://api.example.com",
//	    Credential: os.Getenv("PROMPTSHIELD_API_KEY"),
//	}
//	client, err := promptshield.New(cfg)
//	if err != nil {
//	    return err
//	}
//	answer, err := client.Protect(ctx, prompt, func(ctx context.Context, safe string) (string, error) {
//	    return llm.Complete(ctx, safe)
//	}, nil)
package promptshield

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/allisson/promptshield/internal/config"
	"github.com/allisson/promptshield/internal/metrics"
	sessionDomain "github.com/allisson/promptshield/internal/session/domain"
	sessionUseCase "github.com/allisson/promptshield/internal/session/usecase"
	transitService "github.com/allisson/promptshield/internal/transit/service"
	"github.com/allisson/promptshield/internal/transport"
)

// Config holds all client configuration. See the field documentation on the
// underlying type for details; Credential and APIURL are required.
type Config = config.ClientConfig

// Options carries per-operation options such as the mapping TTL.
type Options = sessionDomain.AnonymizeOptions

// TTL builds options carrying an explicit server-side mapping retention in
// seconds. Values outside (0, 86400] are rejected before any network call.
func TTL(seconds int) *Options {
	return &Options{TTLSeconds: &seconds}
}

// Stats are the optional replacement statistics of an anonymize operation.
type Stats = sessionDomain.Stats

// AnonymizeResult bundles the safe text, optional statistics, and the bound
// restore capability produced by a successful anonymize call.
type AnonymizeResult = sessionUseCase.AnonymizeResult

// RestoreCapability restores one processed text using the correlation token
// captured at anonymize time.
type RestoreCapability = sessionUseCase.RestoreCapability

// ProcessFunc is the caller-supplied processing step invoked between
// anonymize and restore.
type ProcessFunc = sessionUseCase.ProcessFunc

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig() *Config {
	return config.Load()
}

// ResetTransportPool forcibly closes and clears all pooled transport
// sessions. Intended for test teardown.
func ResetTransportPool() {
	transport.ResetPool()
}

// ClientOption customizes client construction.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger *slog.Logger
}

// WithLogger sets the logger used by the client and its layers.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// Client is a session handle that amortizes configuration validation and
// encryption auto-provisioning across many protocol invocations.
//
// Construct once with New, then call Anonymize and Protect from any number
// of goroutines.
type Client struct {
	protocol *sessionUseCase.Protocol
	metrics  metrics.OperationMetrics
	provider *metrics.Provider
	logger   *slog.Logger
}

// New validates cfg once (including private key parsing when the encryption
// overlay is configured) and returns a client whose operations skip
// revalidation. Configuration errors are raised here, before any network
// call.
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	options := clientOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	tr, err := transport.NewClient(transport.Config{
		BaseURL:        cfg.APIURL,
		Credential:     cfg.Credential,
		Headers:        cfg.Headers,
		Timeout:        cfg.TimeoutOrDefault(),
		RequestsPerSec: cfg.RequestsPerSec,
		Burst:          cfg.Burst,
		Logger:         options.logger,
	})
	if err != nil {
		return nil, err
	}

	resolver := transitService.NewKeyResolver(cfg.KeyDiscoveryPath, options.logger)

	protocol, err := sessionUseCase.NewProtocol(cfg, tr, resolver, options.logger)
	if err != nil {
		return nil, err
	}

	client := &Client{
		protocol: protocol,
		metrics:  metrics.NewNoOpOperationMetrics(),
		logger:   options.logger,
	}

	if cfg.MetricsEnabled {
		provider, err := metrics.NewProvider(cfg.MetricsNamespaceOrDefault())
		if err != nil {
			return nil, err
		}
		operationMetrics, err := metrics.NewOperationMetrics(provider.MeterProvider(), cfg.MetricsNamespaceOrDefault())
		if err != nil {
			return nil, err
		}
		client.provider = provider
		client.metrics = operationMetrics
	}

	return client, nil
}

// Anonymize sends the prompt for anonymization and returns the safe text
// together with a restore capability bound to the server-issued correlation
// token.
func (c *Client) Anonymize(ctx context.Context, prompt string, opts *Options) (*AnonymizeResult, error) {
	start := time.Now()
	result, err := c.protocol.Anonymize(ctx, prompt, opts)
	c.record(ctx, "anonymize", start, err)
	return result, err
}

// Protect sequences anonymize, fn, and restore, returning the final text
// with the original sensitive values substituted back in. Any failure at
// any stage propagates unmodified.
func (c *Client) Protect(ctx context.Context, prompt string, fn ProcessFunc, opts *Options) (string, error) {
	start := time.Now()
	restored, err := c.protocol.Wrap(ctx, prompt, fn, opts)
	c.record(ctx, "protect", start, err)
	return restored, err
}

// MetricsHandler returns the Prometheus exposition handler, or nil when
// metrics are disabled.
func (c *Client) MetricsHandler() http.Handler {
	if c.provider == nil {
		return nil
	}
	return c.provider.Handler()
}

// Shutdown flushes pending metrics. Safe to call when metrics are disabled.
func (c *Client) Shutdown(ctx context.Context) error {
	if c.provider == nil {
		return nil
	}
	return c.provider.Shutdown(ctx)
}

// record captures operation count and duration with a success/error status.
func (c *Client) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordOperation(ctx, operation, status)
	c.metrics.RecordDuration(ctx, operation, time.Since(start), status)
}

// Wrap anonymizes prompt, invokes fn with the safe text, and restores the
// original values in fn's output. It validates cfg on every call; use New
// and Client.Protect to amortize validation across invocations.
func Wrap(ctx context.Context, prompt string, fn ProcessFunc, cfg *Config, opts *Options) (string, error) {
	client, err := New(cfg)
	if err != nil {
		return "", err
	}
	return client.Protect(ctx, prompt, fn, opts)
}

// Anonymize performs a single anonymize call with cfg validated on the spot.
// Use New and Client.Anonymize to amortize validation across invocations.
func Anonymize(ctx context.Context, prompt string, cfg *Config, opts *Options) (*AnonymizeResult, error) {
	client, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return client.Anonymize(ctx, prompt, opts)
}
