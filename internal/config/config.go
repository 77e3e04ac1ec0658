// Package config provides client configuration, loadable from environment
// variables or constructed programmatically by SDK consumers.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/allisson/go-env"
	validation "github.com/jellydator/validation"
	"github.com/joho/godotenv"

	transitService "github.com/allisson/promptshield/internal/transit/service"
	customValidation "github.com/allisson/promptshield/internal/validation"
)

// Default endpoint paths and transport settings.
const (
	// DefaultAnonymizePath is the anonymize operation endpoint.
	DefaultAnonymizePath = "/v1/anonymize"
	// DefaultRestorePath is the restore operation endpoint.
	DefaultRestorePath = "/v1/restore"
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 2 * time.Second
	// DefaultMetricsNamespace prefixes all metric names.
	DefaultMetricsNamespace = "promptshield"
)

// ClientConfig holds all client configuration.
//
// Credential is the only required field besides APIURL. PrivateKeyPEM, when
// present, activates the transit encryption overlay with no further
// configuration: the matching public key is discovered automatically.
type ClientConfig struct {
	// APIURL is the remote service origin (e.g., "https://api.example.com").
	APIURL string
	// Credential is the opaque bearer token sent on every request.
	Credential string

	// AnonymizePath overrides the anonymize endpoint path.
	AnonymizePath string
	// RestorePath overrides the restore endpoint path.
	RestorePath string
	// KeyDiscoveryPath overrides the transit key discovery endpoint path.
	KeyDiscoveryPath string

	// Headers are extra headers merged into every request. They never
	// override the content type, authorization, or request id headers.
	Headers map[string]string

	// PrivateKeyPEM is PEM-encoded RSA private key material. When set it
	// must parse before use and enables the encryption overlay.
	PrivateKeyPEM string

	// Timeout bounds every outbound request. Zero means DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSec enables a client-side token-bucket limiter on outbound
	// requests when positive. Zero disables limiting.
	RequestsPerSec float64
	// Burst is the limiter burst size. Only used when RequestsPerSec is set.
	Burst int

	// MetricsEnabled turns on operation metrics collection.
	MetricsEnabled bool
	// MetricsNamespace is the prefix for metric names.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *ClientConfig {
	loadDotEnv()

	return &ClientConfig{
		APIURL:           env.GetString("PROMPTSHIELD_API_URL", ""),
		Credential:       env.GetString("PROMPTSHIELD_API_KEY", ""),
		AnonymizePath:    env.GetString("PROMPTSHIELD_ANONYMIZE_PATH", DefaultAnonymizePath),
		RestorePath:      env.GetString("PROMPTSHIELD_RESTORE_PATH", DefaultRestorePath),
		KeyDiscoveryPath: env.GetString("PROMPTSHIELD_KEY_DISCOVERY_PATH", transitService.DefaultKeyDiscoveryPath),
		PrivateKeyPEM:    env.GetString("PROMPTSHIELD_PRIVATE_KEY_PEM", ""),
		Timeout:          env.GetDuration("PROMPTSHIELD_TIMEOUT_MS", 2000, time.Millisecond),
		RequestsPerSec:   env.GetFloat64("PROMPTSHIELD_REQUESTS_PER_SEC", 0),
		Burst:            env.GetInt("PROMPTSHIELD_BURST", 0),
		MetricsEnabled:   env.GetBool("PROMPTSHIELD_METRICS_ENABLED", false),
		MetricsNamespace: env.GetString("PROMPTSHIELD_METRICS_NAMESPACE", DefaultMetricsNamespace),
	}
}

// Validate checks the configuration before any network call.
//
// The credential must be present and non-blank, the API URL must be an
// absolute http(s) URL, path overrides must be rooted, and private key
// material, when present, must be structurally valid PEM.
func (c *ClientConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.APIURL,
			validation.Required,
			customValidation.AbsoluteHTTPURL,
		),
		validation.Field(&c.Credential,
			validation.Required,
			customValidation.NotBlank,
			customValidation.NoWhitespace,
		),
		validation.Field(&c.AnonymizePath,
			validation.Skip.When(c.AnonymizePath == ""),
			customValidation.LeadingSlashPath,
		),
		validation.Field(&c.RestorePath,
			validation.Skip.When(c.RestorePath == ""),
			customValidation.LeadingSlashPath,
		),
		validation.Field(&c.KeyDiscoveryPath,
			validation.Skip.When(c.KeyDiscoveryPath == ""),
			customValidation.LeadingSlashPath,
		),
		validation.Field(&c.PrivateKeyPEM,
			validation.Skip.When(c.PrivateKeyPEM == ""),
			validation.By(validatePrivateKeyPEM),
		),
	)
	return customValidation.WrapValidationError(err)
}

// OverlayEnabled reports whether the transit encryption overlay is active.
func (c *ClientConfig) OverlayEnabled() bool {
	return c.PrivateKeyPEM != ""
}

// AnonymizePathOrDefault returns the configured anonymize path or the default.
func (c *ClientConfig) AnonymizePathOrDefault() string {
	if c.AnonymizePath != "" {
		return c.AnonymizePath
	}
	return DefaultAnonymizePath
}

// RestorePathOrDefault returns the configured restore path or the default.
func (c *ClientConfig) RestorePathOrDefault() string {
	if c.RestorePath != "" {
		return c.RestorePath
	}
	return DefaultRestorePath
}

// TimeoutOrDefault returns the configured timeout or the default.
func (c *ClientConfig) TimeoutOrDefault() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// MetricsNamespaceOrDefault returns the configured namespace or the default.
func (c *ClientConfig) MetricsNamespaceOrDefault() string {
	if c.MetricsNamespace != "" {
		return c.MetricsNamespace
	}
	return DefaultMetricsNamespace
}

// validatePrivateKeyPEM checks private key material structure.
func validatePrivateKeyPEM(value interface{}) error {
	pemText, ok := value.(string)
	if !ok {
		return validation.NewError("validation_private_key_type", "private key must be a string")
	}
	if !transitService.ValidatePrivateKeyPEM(pemText) {
		return validation.NewError("validation_private_key_pem", "must be PEM-encoded private key material")
	}
	return nil
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	dir := cwd
	for {
		envFile := filepath.Join(dir, ".env")
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
			return
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
