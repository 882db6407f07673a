package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestGenerateSessionID(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		id, err := GenerateSessionID()
		require.NoError(t, err)
		assert.Len(t, id, 64)
	})

	t.Run("generates unique ids", func(t *testing.T) {
		id1, _ := GenerateSessionID()
		id2, _ := GenerateSessionID()
		assert.NotEqual(t, id1, id2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		id, _ := GenerateSessionID()
		for _, c := range id {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestHashSessionID(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		hash := HashSessionID("test-session-id")
		assert.Len(t, hash, 64)
	})

	t.Run("same input produces same hash", func(t *testing.T) {
		hash1 := HashSessionID("test-session-id")
		hash2 := HashSessionID("test-session-id")
		assert.Equal(t, hash1, hash2)
	})

	t.Run("different input produces different hash", func(t *testing.T) {
		hash1 := HashSessionID("session-1")
		hash2 := HashSessionID("session-2")
		assert.NotEqual(t, hash1, hash2)
	})
}

func TestHmacSHA256(t *testing.T) {
	t.Run("returns 64 character hex string", func(t *testing.T) {
		result := HmacSHA256("secret", "data")
		assert.Len(t, result, 64)
	})

	t.Run("same inputs produce same result", func(t *testing.T) {
		result1 := HmacSHA256("secret", "data")
		result2 := HmacSHA256("secret", "data")
		assert.Equal(t, result1, result2)
	})

	t.Run("different secret produces different result", func(t *testing.T) {
		result1 := HmacSHA256("secret-1", "data")
		result2 := HmacSHA256("secret-2", "data")
		assert.NotEqual(t, result1, result2)
	})

	t.Run("different data produces different result", func(t *testing.T) {
		result1 := HmacSHA256("secret", "data-1")
		result2 := HmacSHA256("secret", "data-2")
		assert.NotEqual(t, result1, result2)
	})
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("abc", "abc"))
	assert.False(t, ConstantTimeEqual("abc", "abd"))
	assert.False(t, ConstantTimeEqual("abc", "abcd"))
	assert.False(t, ConstantTimeEqual("", "abc"))
	assert.True(t, ConstantTimeEqual("", ""))
}

func TestCheckPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("accepts matching password", func(t *testing.T) {
		assert.True(t, CheckPasswordHash("correct-horse", string(hash)))
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		assert.False(t, CheckPasswordHash("battery-staple", string(hash)))
	})

	t.Run("rejects malformed hash", func(t *testing.T) {
		assert.False(t, CheckPasswordHash("correct-horse", "not-a-bcrypt-hash"))
	})
}

func TestMaskSessionID(t *testing.T) {
	t.Run("masks long ids", func(t *testing.T) {
		assert.Equal(t, "abcdef12...", MaskSessionID("abcdef1234567890"))
	})

	t.Run("fully masks short ids", func(t *testing.T) {
		assert.Equal(t, "********", MaskSessionID("short"))
	})
}
