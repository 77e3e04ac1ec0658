package domain

import (
	"encoding/json"

	"github.com/allisson/promptshield/internal/errors"
)

// PromptValue is the tagged union used for the "prompt" and "output" wire
// fields, which may be either a plain string or an EncryptableField object.
//
// Exactly one arm is populated. Discrimination happens on the JSON shape
// (string vs object) rather than runtime type inspection, preserving wire
// compatibility with servers that predate the encryption overlay.
type PromptValue struct {
	Text  string
	Field *EncryptableField
}

// PlainPrompt returns a PromptValue carrying plain text.
func PlainPrompt(text string) PromptValue {
	return PromptValue{Text: text}
}

// EncryptedPrompt returns a PromptValue carrying an encrypted field.
func EncryptedPrompt(field EncryptableField) PromptValue {
	return PromptValue{Field: &field}
}

// IsEncrypted reports whether the value carries an encrypted field with the
// discriminant set.
func (p PromptValue) IsEncrypted() bool {
	return p.Field != nil && p.Field.Encrypted
}

// MarshalJSON encodes the populated arm: the field object when present,
// otherwise the plain string.
func (p PromptValue) MarshalJSON() ([]byte, error) {
	if p.Field != nil {
		return json.Marshal(p.Field)
	}
	return json.Marshal(p.Text)
}

// UnmarshalJSON decodes either a JSON string (plain arm) or an object
// (encrypted arm). An object with the encrypted discriminant unset is
// treated as plain text carried in its value field, matching servers that
// always emit the structured shape.
func (p *PromptValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*p = PromptValue{Text: text}
		return nil
	}

	var field EncryptableField
	if err := json.Unmarshal(data, &field); err != nil {
		return errors.Wrap(errors.ErrProtocolViolation, "prompt value must be a string or an encrypted field object")
	}
	if !field.Encrypted {
		*p = PromptValue{Text: field.Value}
		return nil
	}
	*p = PromptValue{Field: &field}
	return nil
}
