package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/promptshield/internal/errors"
	"github.com/allisson/promptshield/internal/transit/domain"
)

func TestPromptValue_Marshal(t *testing.T) {
	t.Run("PlainArmEncodesAsString", func(t *testing.T) {
		// Arrange
		value := domain.PlainPrompt("hello world")

		// Act
		raw, err := json.Marshal(value)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `"hello world"`, string(raw))
	})

	t.Run("EncryptedArmEncodesAsObject", func(t *testing.T) {
		// Arrange
		field, err := domain.NewEncryptableField("Y2lwaGVy", "key-1")
		require.NoError(t, err)
		value := domain.EncryptedPrompt(field)

		// Act
		raw, err := json.Marshal(value)

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"value":"Y2lwaGVy","encrypted":true,"keyId":"key-1"}`, string(raw))
	})
}

func TestPromptValue_Unmarshal(t *testing.T) {
	t.Run("StringDecodesToPlainArm", func(t *testing.T) {
		var value domain.PromptValue
		require.NoError(t, json.Unmarshal([]byte(`"plain text"`), &value))

		assert.Equal(t, "plain text", value.Text)
		assert.Nil(t, value.Field)
		assert.False(t, value.IsEncrypted())
	})

	t.Run("EncryptedObjectDecodesToFieldArm", func(t *testing.T) {
		var value domain.PromptValue
		raw := `{"value":"Y2lwaGVy","encrypted":true,"keyId":"key-1"}`
		require.NoError(t, json.Unmarshal([]byte(raw), &value))

		require.NotNil(t, value.Field)
		assert.True(t, value.IsEncrypted())
		assert.Equal(t, "key-1", value.Field.KeyID)
		assert.Equal(t, "Y2lwaGVy", value.Field.Value)
	})

	t.Run("UnencryptedObjectDecodesToPlainArm", func(t *testing.T) {
		// Servers that always emit the structured shape mark plain payloads
		// with encrypted=false.
		var value domain.PromptValue
		raw := `{"value":"plain carried in object","encrypted":false,"keyId":""}`
		require.NoError(t, json.Unmarshal([]byte(raw), &value))

		assert.Equal(t, "plain carried in object", value.Text)
		assert.False(t, value.IsEncrypted())
	})

	t.Run("Error_UnsupportedShape", func(t *testing.T) {
		var value domain.PromptValue
		err := json.Unmarshal([]byte(`42`), &value)

		require.Error(t, err)
		assert.True(t, apperrors.Is(err, apperrors.ErrProtocolViolation))
	})

	t.Run("RoundTrip", func(t *testing.T) {
		field, err := domain.NewEncryptableField("Y2lwaGVy", "key-1")
		require.NoError(t, err)
		original := domain.EncryptedPrompt(field)

		raw, err := json.Marshal(original)
		require.NoError(t, err)
		var decoded domain.PromptValue
		require.NoError(t, json.Unmarshal(raw, &decoded))

		assert.Equal(t, original, decoded)
	})
}
