package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/promptshield/internal/config"
	apperrors "github.com/allisson/promptshield/internal/errors"
	"github.com/allisson/promptshield/internal/testutil"
)

func validConfig() *config.ClientConfig {
	return &config.ClientConfig{
		APIURL:     "https://api.example.com",
		Credential: "test-credential",
	}
}

func TestLoad(t *testing.T) {
	t.Run("DefaultsApplied", func(t *testing.T) {
		// Arrange
		t.Setenv("PROMPTSHIELD_API_URL", "https://api.example.com")
		t.Setenv("PROMPTSHIELD_API_KEY", "env-credential")

		// Act
		cfg := config.Load()

		// Assert
		assert.Equal(t, "https://api.example.com", cfg.APIURL)
		assert.Equal(t, "env-credential", cfg.Credential)
		assert.Equal(t, config.DefaultAnonymizePath, cfg.AnonymizePath)
		assert.Equal(t, config.DefaultRestorePath, cfg.RestorePath)
		assert.Equal(t, 2*time.Second, cfg.Timeout)
		assert.False(t, cfg.MetricsEnabled)
	})

	t.Run("OverridesApplied", func(t *testing.T) {
		t.Setenv("PROMPTSHIELD_ANONYMIZE_PATH", "/custom/anonymize")
		t.Setenv("PROMPTSHIELD_TIMEOUT_MS", "5000")

		cfg := config.Load()

		assert.Equal(t, "/custom/anonymize", cfg.AnonymizePath)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})
}

func TestClientConfig_Validate(t *testing.T) {
	t.Run("Success_MinimalConfig", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate())
	})

	t.Run("Success_WithPrivateKey", func(t *testing.T) {
		// Arrange
		key, err := testutil.GenerateKeyPair()
		require.NoError(t, err)
		cfg := validConfig()
		cfg.PrivateKeyPEM = testutil.PrivateKeyPEM(key)

		// Assert
		assert.NoError(t, cfg.Validate())
		assert.True(t, cfg.OverlayEnabled())
	})

	t.Run("Error_MissingCredential", func(t *testing.T) {
		cfg := validConfig()
		cfg.Credential = ""

		err := cfg.Validate()

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Error_BlankCredential", func(t *testing.T) {
		cfg := validConfig()
		cfg.Credential = "   "

		assert.Error(t, cfg.Validate())
	})

	t.Run("Error_InvalidAPIURL", func(t *testing.T) {
		cfg := validConfig()
		cfg.APIURL = "not a url"

		assert.Error(t, cfg.Validate())
	})

	t.Run("Error_RelativePathOverride", func(t *testing.T) {
		cfg := validConfig()
		cfg.AnonymizePath = "v1/anonymize"

		assert.Error(t, cfg.Validate())
	})

	t.Run("Error_MalformedPrivateKey", func(t *testing.T) {
		cfg := validConfig()
		cfg.PrivateKeyPEM = "-----BEGIN NONSENSE-----\nabc\n-----END NONSENSE-----"

		err := cfg.Validate()

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})

	t.Run("Error_PublicKeyWherePrivateExpected", func(t *testing.T) {
		key, err := testutil.GenerateKeyPair()
		require.NoError(t, err)
		cfg := validConfig()
		cfg.PrivateKeyPEM = testutil.PublicKeyPEM(&key.PublicKey)

		assert.Error(t, cfg.Validate())
	})
}

func TestClientConfig_Defaults(t *testing.T) {
	t.Run("PathAndTimeoutFallbacks", func(t *testing.T) {
		cfg := &config.ClientConfig{}

		assert.Equal(t, config.DefaultAnonymizePath, cfg.AnonymizePathOrDefault())
		assert.Equal(t, config.DefaultRestorePath, cfg.RestorePathOrDefault())
		assert.Equal(t, config.DefaultTimeout, cfg.TimeoutOrDefault())
		assert.Equal(t, config.DefaultMetricsNamespace, cfg.MetricsNamespaceOrDefault())
	})

	t.Run("OverridesWin", func(t *testing.T) {
		cfg := &config.ClientConfig{
			AnonymizePath: "/custom/anonymize",
			Timeout:       10 * time.Second,
		}

		assert.Equal(t, "/custom/anonymize", cfg.AnonymizePathOrDefault())
		assert.Equal(t, 10*time.Second, cfg.TimeoutOrDefault())
	})
}
