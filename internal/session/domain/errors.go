// Package domain defines the session protocol models and errors.
package domain

import (
	"github.com/allisson/promptshield/internal/errors"
)

// Session protocol error definitions.
var (
	// ErrBlankPrompt indicates the prompt to anonymize is empty or blank.
	ErrBlankPrompt = errors.Wrap(errors.ErrInvalidInput, "prompt must not be blank")

	// ErrNilProcessFunc indicates no processing function was supplied to wrap.
	ErrNilProcessFunc = errors.Wrap(errors.ErrInvalidInput, "process function must not be nil")

	// ErrMissingSafePrompt indicates the anonymize response lacks the safe text.
	ErrMissingSafePrompt = errors.Wrap(errors.ErrProtocolViolation, "anonymize response missing safePrompt")

	// ErrMissingMappingID indicates the anonymize response lacks the correlation token.
	ErrMissingMappingID = errors.Wrap(errors.ErrProtocolViolation, "anonymize response missing mappingId")

	// ErrKeyIDMismatch indicates a restore response claims encryption under a
	// key identifier different from the one resolved for the active
	// credential. Fatal: defends against key-confusion substitution.
	ErrKeyIDMismatch = errors.Wrap(errors.ErrProtocolViolation, "restore response key identifier mismatch")

	// ErrNoDecryptionKey indicates an encrypted restore response arrived but
	// no private key is configured.
	ErrNoDecryptionKey = errors.Wrap(errors.ErrProtocolViolation, "encrypted response but no decryption key")
)
