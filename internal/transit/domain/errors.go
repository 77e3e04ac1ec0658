// Package domain defines the wire-level models for the transit encryption overlay.
package domain

import (
	"github.com/allisson/promptshield/internal/errors"
)

// Transit encryption error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// to provide context for transit encryption failures.
var (
	// ErrEmptyKeyID indicates an encryptable field was built without a key identifier.
	ErrEmptyKeyID = errors.Wrap(errors.ErrInvalidInput, "key identifier must not be empty")

	// ErrEmptyCiphertext indicates an encryptable field was built without ciphertext.
	ErrEmptyCiphertext = errors.Wrap(errors.ErrInvalidInput, "ciphertext must not be empty")

	// ErrInvalidPublicKey indicates public key material failed structural or parse checks.
	ErrInvalidPublicKey = errors.Wrap(errors.ErrInvalidInput, "invalid public key material")

	// ErrInvalidPrivateKey indicates private key material failed structural or parse checks.
	ErrInvalidPrivateKey = errors.Wrap(errors.ErrInvalidInput, "invalid private key material")

	// ErrIncompleteKeyDiscovery indicates the key discovery response is missing
	// the key identifier or a structurally valid public key.
	ErrIncompleteKeyDiscovery = errors.Wrap(errors.ErrProtocolViolation, "incomplete key discovery response")

	// ErrEncryptFailure indicates asymmetric encryption failed.
	ErrEncryptFailure = errors.Wrap(errors.ErrCrypto, "encryption failed")

	// ErrDecryptFailure indicates asymmetric decryption failed. No partial
	// plaintext is ever returned alongside this error.
	ErrDecryptFailure = errors.Wrap(errors.ErrCrypto, "decryption failed")
)
