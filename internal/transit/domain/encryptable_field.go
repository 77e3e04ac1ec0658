package domain

// EncryptableField is the wire representation of an encrypted text payload.
//
// Fields:
//   - Value: base64-encoded ciphertext
//   - Encrypted: discriminant marking the payload as encrypted
//   - KeyID: identifier of the key pair the ciphertext was produced for
//
// When Encrypted is true the key identifier must be present and must match
// the key identifier the client resolved for its credential. A mismatch is a
// fatal protocol error, never a silently-ignored condition.
type EncryptableField struct {
	Value     string `json:"value"`
	Encrypted bool   `json:"encrypted"`
	KeyID     string `json:"keyId"`
}

// NewEncryptableField packages ciphertext and a key identifier for the wire.
//
// Empty inputs are a programming or configuration error, not a network error:
// returns ErrEmptyCiphertext or ErrEmptyKeyID accordingly.
func NewEncryptableField(ciphertext, keyID string) (EncryptableField, error) {
	if ciphertext == "" {
		return EncryptableField{}, ErrEmptyCiphertext
	}
	if keyID == "" {
		return EncryptableField{}, ErrEmptyKeyID
	}
	return EncryptableField{
		Value:     ciphertext,
		Encrypted: true,
		KeyID:     keyID,
	}, nil
}
