// Package usecase implements the two-phase session protocol: anonymize a
// prompt, hand the safe text to the caller, then restore the original values
// in the caller's output using the server-issued correlation token.
package usecase

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"strings"

	"github.com/allisson/promptshield/internal/config"
	sessionDomain "github.com/allisson/promptshield/internal/session/domain"
	transitDomain "github.com/allisson/promptshield/internal/transit/domain"
	transitService "github.com/allisson/promptshield/internal/transit/service"
)

// Transport is the slice of the transport layer the protocol needs.
// Satisfied by *transport.Client.
type Transport interface {
	PostJSON(ctx context.Context, path string, body, out any) error
	GetJSON(ctx context.Context, path string, out any) error
}

// KeyResolver resolves the public key material for the encryption overlay.
// Satisfied by *transitService.KeyResolver.
type KeyResolver interface {
	Resolve(ctx context.Context, credential string, transport transitService.Discoverer) (transitDomain.KeyCacheEntry, error)
}

// ProcessFunc is the caller-supplied processing step that receives the safe
// prompt and returns the processed text to restore.
type ProcessFunc func(ctx context.Context, safePrompt string) (string, error)

// overlayContext bundles the key material of an active encryption overlay.
// A nil overlayContext selects the plain, backward-compatible path; the
// choice is made once at provisioning time, not re-derived per call.
type overlayContext struct {
	keyID      string
	publicKey  *rsa.PublicKey
	privateKey *rsa.PrivateKey
}

// Protocol orchestrates anonymize/restore cycles over one transport.
//
// A Protocol is created with validated configuration and an already-parsed
// private key, so repeated invocations skip revalidation. Safe for
// concurrent use; independent cycles share nothing but the transport session
// and the key cache.
type Protocol struct {
	cfg        *config.ClientConfig
	transport  Transport
	resolver   KeyResolver
	privateKey *rsa.PrivateKey
	logger     *slog.Logger
}

// NewProtocol validates cfg once and builds a protocol instance. When cfg
// carries private key material it must parse here; a malformed key is a
// configuration error raised before any network call.
func NewProtocol(cfg *config.ClientConfig, tr Transport, resolver KeyResolver, logger *slog.Logger) (*Protocol, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var privateKey *rsa.PrivateKey
	if cfg.OverlayEnabled() {
		key, err := transitService.ParsePrivateKey(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, err
		}
		privateKey = key
	}

	return &Protocol{
		cfg:        cfg,
		transport:  tr,
		resolver:   resolver,
		privateKey: privateKey,
		logger:     logger,
	}, nil
}

// anonymizeRequest is the anonymize operation wire request.
type anonymizeRequest struct {
	Prompt transitDomain.PromptValue `json:"prompt"`
	TTL    int                       `json:"ttl,omitempty"`
}

// anonymizeResponse is the anonymize operation wire response.
type anonymizeResponse struct {
	SafePrompt string               `json:"safePrompt"`
	MappingID  string               `json:"mappingId"`
	Stats      *sessionDomain.Stats `json:"stats,omitempty"`
}

// AnonymizeResult is the outcome of a successful anonymize call: the safe
// text plus a bound restore capability and optional replacement statistics.
type AnonymizeResult struct {
	SafePrompt string
	Stats      *sessionDomain.Stats
	Restore    *RestoreCapability
}

// Anonymize sends the prompt for anonymization and captures the correlation
// token inside the returned restore capability.
//
// When the encryption overlay is active the prompt is encrypted with the
// resolved public key before leaving the process. The response must carry
// both the safe text and the correlation token; a missing field is a
// protocol violation.
func (p *Protocol) Anonymize(ctx context.Context, prompt string, opts *sessionDomain.AnonymizeOptions) (*AnonymizeResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, sessionDomain.ErrBlankPrompt
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	overlay, err := p.provisionOverlay(ctx)
	if err != nil {
		return nil, err
	}

	req := anonymizeRequest{Prompt: transitDomain.PlainPrompt(prompt)}
	if overlay != nil {
		field, err := encryptField(prompt, overlay)
		if err != nil {
			return nil, err
		}
		req.Prompt = transitDomain.EncryptedPrompt(field)
	}
	if opts != nil && opts.TTLSeconds != nil {
		req.TTL = *opts.TTLSeconds
	}

	var resp anonymizeResponse
	if err := p.transport.PostJSON(ctx, p.cfg.AnonymizePathOrDefault(), req, &resp); err != nil {
		return nil, err
	}

	if resp.SafePrompt == "" {
		return nil, sessionDomain.ErrMissingSafePrompt
	}
	if resp.MappingID == "" {
		return nil, sessionDomain.ErrMissingMappingID
	}

	p.logger.Debug("prompt anonymized",
		slog.String("mapping_id", resp.MappingID),
		slog.Bool("encrypted", overlay != nil),
	)

	return &AnonymizeResult{
		SafePrompt: resp.SafePrompt,
		Stats:      resp.Stats,
		Restore: &RestoreCapability{
			mappingID:   resp.MappingID,
			transport:   p.transport,
			restorePath: p.cfg.RestorePathOrDefault(),
			overlay:     overlay,
			logger:      p.logger,
		},
	}, nil
}

// Wrap sequences anonymize, the caller's processing function, and restore,
// returning the final restored text. Failures at any stage propagate
// unmodified; there is no partial recovery.
func (p *Protocol) Wrap(ctx context.Context, prompt string, fn ProcessFunc, opts *sessionDomain.AnonymizeOptions) (string, error) {
	if fn == nil {
		return "", sessionDomain.ErrNilProcessFunc
	}

	result, err := p.Anonymize(ctx, prompt, opts)
	if err != nil {
		return "", err
	}

	processed, err := fn(ctx, result.SafePrompt)
	if err != nil {
		return "", err
	}

	return result.Restore.Restore(ctx, processed)
}

// provisionOverlay resolves the key material for the encryption overlay, or
// returns nil when no private key is configured (plain path).
func (p *Protocol) provisionOverlay(ctx context.Context) (*overlayContext, error) {
	if p.privateKey == nil {
		return nil, nil
	}

	entry, err := p.resolver.Resolve(ctx, p.cfg.Credential, p.transport)
	if err != nil {
		return nil, err
	}

	return &overlayContext{
		keyID:      entry.KeyID,
		publicKey:  entry.PublicKey,
		privateKey: p.privateKey,
	}, nil
}

// encryptField encrypts text under the overlay's public key and packages it
// for the wire.
func encryptField(text string, overlay *overlayContext) (transitDomain.EncryptableField, error) {
	ciphertext, err := transitService.Encrypt(text, overlay.publicKey)
	if err != nil {
		return transitDomain.EncryptableField{}, err
	}
	return transitDomain.NewEncryptableField(ciphertext, overlay.keyID)
}
