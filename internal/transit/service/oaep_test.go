package service_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/promptshield/internal/errors"
	"github.com/allisson/promptshield/internal/testutil"
	"github.com/allisson/promptshield/internal/transit/domain"
	"github.com/allisson/promptshield/internal/transit/service"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt(t *testing.T) {
	key := generateKey(t)

	t.Run("RoundTripIdentity", func(t *testing.T) {
		// Arrange
		plaintext := "Contact: juan.perez@example.com, +56 9 9876 5432, Juan Pérez"

		// Act
		ciphertext, err := service.Encrypt(plaintext, &key.PublicKey)
		require.NoError(t, err)
		decrypted, err := service.Decrypt(ciphertext, key)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	})

	t.Run("EmptyPlaintextRoundTrips", func(t *testing.T) {
		ciphertext, err := service.Encrypt("", &key.PublicKey)
		require.NoError(t, err)
		decrypted, err := service.Decrypt(ciphertext, key)
		require.NoError(t, err)
		assert.Equal(t, "", decrypted)
	})

	t.Run("CiphertextIsBase64", func(t *testing.T) {
		ciphertext, err := service.Encrypt("payload", &key.PublicKey)
		require.NoError(t, err)
		_, err = base64.StdEncoding.DecodeString(ciphertext)
		assert.NoError(t, err)
	})

	t.Run("PaddingIsRandomized", func(t *testing.T) {
		// OAEP is randomized: two encryptions of the same plaintext differ.
		first, err := service.Encrypt("same input", &key.PublicKey)
		require.NoError(t, err)
		second, err := service.Encrypt("same input", &key.PublicKey)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("CrossKeyDecryptionFails", func(t *testing.T) {
		// Arrange
		otherKey := generateKey(t)
		ciphertext, err := service.Encrypt("secret", &key.PublicKey)
		require.NoError(t, err)

		// Act
		decrypted, err := service.Decrypt(ciphertext, otherKey)

		// Assert - failure, never corrupted plaintext
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, domain.ErrDecryptFailure))
		assert.Empty(t, decrypted)
	})

	t.Run("InvalidBase64Fails", func(t *testing.T) {
		_, err := service.Decrypt("not-base64!!!", key)
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrCrypto))
	})

	t.Run("NilKeysRejected", func(t *testing.T) {
		_, err := service.Encrypt("x", nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
		_, err = service.Decrypt("eA==", nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestPEMValidators(t *testing.T) {
	key := generateKey(t)
	publicPEM := testutil.PublicKeyPEM(&key.PublicKey)
	privatePEM := testutil.PrivateKeyPEM(key)

	t.Run("AcceptsCorrectCategory", func(t *testing.T) {
		assert.True(t, service.ValidatePublicKeyPEM(publicPEM))
		assert.True(t, service.ValidatePrivateKeyPEM(privatePEM))
	})

	t.Run("RejectsWrongCategory", func(t *testing.T) {
		// A private key where a public key is expected must fail before
		// any cryptographic attempt, and vice versa.
		assert.False(t, service.ValidatePublicKeyPEM(privatePEM))
		assert.False(t, service.ValidatePrivateKeyPEM(publicPEM))
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		assert.False(t, service.ValidatePublicKeyPEM("not pem at all"))
		assert.False(t, service.ValidatePrivateKeyPEM(""))
	})
}

func TestParseKeys(t *testing.T) {
	key := generateKey(t)

	t.Run("ParsePublicKeyPKIX", func(t *testing.T) {
		parsed, err := service.ParsePublicKey(testutil.PublicKeyPEM(&key.PublicKey))
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, parsed.N)
	})

	t.Run("ParsePrivateKeyPKCS8", func(t *testing.T) {
		parsed, err := service.ParsePrivateKey(testutil.PrivateKeyPEM(key))
		require.NoError(t, err)
		assert.Equal(t, key.D, parsed.D)
	})

	t.Run("ParsePublicKeyRejectsPrivatePEM", func(t *testing.T) {
		_, err := service.ParsePublicKey(testutil.PrivateKeyPEM(key))
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, domain.ErrInvalidPublicKey))
	})

	t.Run("ParsePrivateKeyRejectsPublicPEM", func(t *testing.T) {
		_, err := service.ParsePrivateKey(testutil.PublicKeyPEM(&key.PublicKey))
		require.Error(t, err)
		assert.True(t, apperrors.Is(err, domain.ErrInvalidPrivateKey))
	})
}
