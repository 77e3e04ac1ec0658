package service_test

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/promptshield/internal/errors"
	"github.com/allisson/promptshield/internal/testutil"
	"github.com/allisson/promptshield/internal/transit/domain"
	"github.com/allisson/promptshield/internal/transit/service"
)

// stubDiscoverer serves a canned discovery payload and counts fetches.
type stubDiscoverer struct {
	payload map[string]string
	err     error
	calls   atomic.Int64
}

func (s *stubDiscoverer) GetJSON(ctx context.Context, path string, out any) error {
	s.calls.Add(1)
	if s.err != nil {
		return s.err
	}
	raw, err := json.Marshal(s.payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func discoveryPayload(t *testing.T, key *rsa.PrivateKey, keyID string) map[string]string {
	t.Helper()
	return map[string]string{
		"keyId":         keyID,
		"algorithm":     "RSA-OAEP",
		"hashAlgorithm": "SHA-256",
		"publicKey":     testutil.PublicKeyPEM(&key.PublicKey),
	}
}

func TestKeyResolver_Resolve(t *testing.T) {
	key := generateKey(t)

	t.Run("Success_FetchesAndCaches", func(t *testing.T) {
		// Arrange
		stub := &stubDiscoverer{payload: discoveryPayload(t, key, "key-1")}
		resolver := service.NewKeyResolver("", nil)

		// Act
		first, err := resolver.Resolve(context.Background(), "credential-a", stub)
		require.NoError(t, err)
		second, err := resolver.Resolve(context.Background(), "credential-a", stub)
		require.NoError(t, err)

		// Assert - one network call, equal cached entries
		assert.Equal(t, int64(1), stub.calls.Load())
		assert.Equal(t, "key-1", first.KeyID)
		assert.Equal(t, first, second)
		assert.Equal(t, key.PublicKey.N, first.PublicKey.N)
	})

	t.Run("DistinctCredentialsFetchSeparately", func(t *testing.T) {
		stub := &stubDiscoverer{payload: discoveryPayload(t, key, "key-1")}
		resolver := service.NewKeyResolver("", nil)

		_, err := resolver.Resolve(context.Background(), "credential-a", stub)
		require.NoError(t, err)
		_, err = resolver.Resolve(context.Background(), "credential-b", stub)
		require.NoError(t, err)

		assert.Equal(t, int64(2), stub.calls.Load())
	})

	t.Run("Error_MissingKeyIDNotCached", func(t *testing.T) {
		// Arrange
		payload := discoveryPayload(t, key, "key-1")
		payload["keyId"] = ""
		stub := &stubDiscoverer{payload: payload}
		resolver := service.NewKeyResolver("", nil)

		// Act
		_, err := resolver.Resolve(context.Background(), "credential-a", stub)

		// Assert - fatal and not cached: a second call retries the fetch
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, domain.ErrIncompleteKeyDiscovery))
		_, err = resolver.Resolve(context.Background(), "credential-a", stub)
		require.Error(t, err)
		assert.Equal(t, int64(2), stub.calls.Load())
	})

	t.Run("Error_MalformedPublicKey", func(t *testing.T) {
		payload := discoveryPayload(t, key, "key-1")
		payload["publicKey"] = "not pem"
		stub := &stubDiscoverer{payload: payload}
		resolver := service.NewKeyResolver("", nil)

		_, err := resolver.Resolve(context.Background(), "credential-a", stub)

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, domain.ErrIncompleteKeyDiscovery))
	})

	t.Run("Error_TransportFailurePropagates", func(t *testing.T) {
		stub := &stubDiscoverer{err: apperrors.Wrap(apperrors.ErrTransport, "connection refused")}
		resolver := service.NewKeyResolver("", nil)

		_, err := resolver.Resolve(context.Background(), "credential-a", stub)

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrTransport))
	})

	t.Run("ConcurrentFirstUseDeduplicated", func(t *testing.T) {
		// Arrange
		stub := &stubDiscoverer{payload: discoveryPayload(t, key, "key-1")}
		resolver := service.NewKeyResolver("", nil)

		// Act - many goroutines race the first resolution
		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				entry, err := resolver.Resolve(context.Background(), "credential-a", stub)
				assert.NoError(t, err)
				assert.Equal(t, "key-1", entry.KeyID)
			}()
		}
		wg.Wait()

		// Assert - callers awaited the same in-flight fetch
		assert.LessOrEqual(t, stub.calls.Load(), int64(2))
	})
}
