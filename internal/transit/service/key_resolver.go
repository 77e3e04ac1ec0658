package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/allisson/promptshield/internal/transit/domain"
)

// DefaultKeyDiscoveryPath is the well-known endpoint serving the public key
// material for the transit encryption overlay.
const DefaultKeyDiscoveryPath = "/v1/transit-crypto/inbound-public-key"

// Discoverer is the slice of the transport the resolver needs to fetch key
// material. Satisfied by *transport.Client.
type Discoverer interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// KeyResolver discovers and caches the public key material required to speak
// the encryption overlay, keyed by caller credential.
//
// Cache entries live for the process lifetime and are never mutated once
// populated. Concurrent first-use resolution for the same credential is
// de-duplicated: callers await the same in-flight discovery fetch instead of
// issuing duplicates.
type KeyResolver struct {
	discoveryPath string
	logger        *slog.Logger

	mu    sync.RWMutex
	cache map[string]domain.KeyCacheEntry
	group singleflight.Group
}

// NewKeyResolver creates a key resolver fetching from discoveryPath.
// An empty discoveryPath falls back to DefaultKeyDiscoveryPath.
func NewKeyResolver(discoveryPath string, logger *slog.Logger) *KeyResolver {
	if discoveryPath == "" {
		discoveryPath = DefaultKeyDiscoveryPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyResolver{
		discoveryPath: discoveryPath,
		logger:        logger,
		cache:         make(map[string]domain.KeyCacheEntry),
	}
}

// Resolve returns the cached key material for credential, or performs a
// discovery fetch through transport on first use.
//
// A malformed or incomplete discovery response is fatal and is not cached;
// the next call retries the fetch.
func (r *KeyResolver) Resolve(ctx context.Context, credential string, transport Discoverer) (domain.KeyCacheEntry, error) {
	r.mu.RLock()
	entry, ok := r.cache[credential]
	r.mu.RUnlock()
	if ok {
		return entry, nil
	}

	result, err, _ := r.group.Do(credential, func() (any, error) {
		// Re-check under the flight: another caller may have populated the
		// cache between the read above and the group admission.
		r.mu.RLock()
		entry, ok := r.cache[credential]
		r.mu.RUnlock()
		if ok {
			return entry, nil
		}

		entry, err := r.fetch(ctx, transport)
		if err != nil {
			return domain.KeyCacheEntry{}, err
		}

		r.mu.Lock()
		r.cache[credential] = entry
		r.mu.Unlock()

		r.logger.Debug("transit key resolved", slog.String("key_id", entry.KeyID))
		return entry, nil
	})
	if err != nil {
		return domain.KeyCacheEntry{}, err
	}
	return result.(domain.KeyCacheEntry), nil
}

// fetch performs the discovery GET and validates the response is complete.
func (r *KeyResolver) fetch(ctx context.Context, transport Discoverer) (domain.KeyCacheEntry, error) {
	var key domain.TransitKey
	if err := transport.GetJSON(ctx, r.discoveryPath, &key); err != nil {
		return domain.KeyCacheEntry{}, err
	}

	if key.KeyID == "" {
		return domain.KeyCacheEntry{}, fmt.Errorf("%w: missing keyId", domain.ErrIncompleteKeyDiscovery)
	}
	if !ValidatePublicKeyPEM(key.PublicKey) {
		return domain.KeyCacheEntry{}, fmt.Errorf("%w: missing or malformed publicKey", domain.ErrIncompleteKeyDiscovery)
	}
	publicKey, err := ParsePublicKey(key.PublicKey)
	if err != nil {
		return domain.KeyCacheEntry{}, fmt.Errorf("%w: %v", domain.ErrIncompleteKeyDiscovery, err)
	}

	return domain.KeyCacheEntry{
		KeyID:         key.KeyID,
		Algorithm:     key.Algorithm,
		HashAlgorithm: key.HashAlgorithm,
		PublicKey:     publicKey,
	}, nil
}
