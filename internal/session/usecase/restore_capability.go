package usecase

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "github.com/allisson/promptshield/internal/errors"
	sessionDomain "github.com/allisson/promptshield/internal/session/domain"
	transitDomain "github.com/allisson/promptshield/internal/transit/domain"
	transitService "github.com/allisson/promptshield/internal/transit/service"
)

// restoreRequest is the restore operation wire request.
type restoreRequest struct {
	MappingID       string                    `json:"mappingId"`
	Output          transitDomain.PromptValue `json:"output"`
	EncryptResponse bool                      `json:"encryptResponse,omitempty"`
}

// restoreResponse is the restore operation wire response. The encryption
// discriminant and key identifier may arrive inside the output field or at
// the top level; both shapes are honored.
type restoreResponse struct {
	Output        transitDomain.PromptValue `json:"output"`
	Encrypted     bool                      `json:"encrypted,omitempty"`
	KeyID         string                    `json:"keyId,omitempty"`
	Algorithm     string                    `json:"algorithm,omitempty"`
	HashAlgorithm string                    `json:"hashAlgorithm,omitempty"`
}

// RestoreCapability is the explicit value returned by a successful anonymize
// call: it bundles the correlation token, the transport handle, and the
// overlay context needed to restore one processed text.
//
// The capability only exists after a successful anonymize call, which is
// what enforces the anonymize-before-restore ordering. It is expected to be
// invoked once per logical cycle; invoking it again against a still-valid
// token is not prevented here, and whether the remote service still honors
// the token is the caller's responsibility. The token is never persisted
// beyond this in-memory value.
type RestoreCapability struct {
	mappingID   string
	transport   Transport
	restorePath string
	overlay     *overlayContext
	logger      *slog.Logger
}

// MappingID returns the correlation token captured by this capability.
func (rc *RestoreCapability) MappingID() string {
	return rc.mappingID
}

// Restore sends the processed text together with the correlation token and
// returns the text with the original sensitive values substituted back in.
// Empty processed text is valid: it is sent as-is, so a processor that
// legitimately produces no output still consumes the mapping.
//
// When the overlay is active the outbound text is encrypted and an encrypted
// response is requested. An encrypted response whose key identifier does not
// exactly match the resolved key identifier fails with ErrKeyIDMismatch; an
// encrypted response arriving without a configured private key fails with
// ErrNoDecryptionKey. The plain path returns the output field verbatim.
func (rc *RestoreCapability) Restore(ctx context.Context, processedText string) (string, error) {
	req := restoreRequest{
		MappingID: rc.mappingID,
		Output:    transitDomain.PlainPrompt(processedText),
	}
	if rc.overlay != nil {
		field, err := encryptField(processedText, rc.overlay)
		if err != nil {
			return "", err
		}
		req.Output = transitDomain.EncryptedPrompt(field)
		// No alternate key identifier is sent from this path; the server
		// must answer under the key the overlay resolved.
		req.EncryptResponse = true
	}

	var resp restoreResponse
	if err := rc.transport.PostJSON(ctx, rc.restorePath, req, &resp); err != nil {
		return "", err
	}

	if !resp.Output.IsEncrypted() && !resp.Encrypted {
		return resp.Output.Text, nil
	}
	return rc.decryptResponse(resp)
}

// decryptResponse verifies key identity and decrypts an encrypted restore
// response.
func (rc *RestoreCapability) decryptResponse(resp restoreResponse) (string, error) {
	if rc.overlay == nil || rc.overlay.privateKey == nil {
		return "", sessionDomain.ErrNoDecryptionKey
	}

	keyID := resp.KeyID
	ciphertext := resp.Output.Text
	if resp.Output.Field != nil {
		if resp.Output.Field.KeyID != "" {
			keyID = resp.Output.Field.KeyID
		}
		ciphertext = resp.Output.Field.Value
	}

	if keyID == "" {
		return "", apperrors.Wrap(apperrors.ErrProtocolViolation, "encrypted restore response missing key identifier")
	}
	if keyID != rc.overlay.keyID {
		return "", fmt.Errorf("%w: got %q, expected %q", sessionDomain.ErrKeyIDMismatch, keyID, rc.overlay.keyID)
	}

	plaintext, err := transitService.Decrypt(ciphertext, rc.overlay.privateKey)
	if err != nil {
		return "", err
	}

	rc.logger.Debug("restore response decrypted", slog.String("mapping_id", rc.mappingID))
	return plaintext, nil
}
