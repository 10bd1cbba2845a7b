package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"context7mcp/internal/domain"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestNewEncryptor_RejectsBadKeys(t *testing.T) {
	_, err := NewEncryptor("not hex")
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrEncryptionKey)

	_, err = NewEncryptor("abcd")
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrEncryptionKey)

	_, err = NewEncryptor(testKeyHex)
	require.NoError(t, err)
}

func TestEncrypt_FreshIVPerCall(t *testing.T) {
	enc, err := NewEncryptor(testKeyHex)
	require.NoError(t, err)

	first, err := enc.Encrypt("203.0.113.7")
	require.NoError(t, err)
	second, err := enc.Encrypt("203.0.113.7")
	require.NoError(t, err)

	require.NotEqual(t, first, second)
	require.Equal(t, "203.0.113.7", decryptForTest(t, testKeyHex, first))
	require.Equal(t, "203.0.113.7", decryptForTest(t, testKeyHex, second))
}

func TestEncrypt_WrongKeyDoesNotRecoverPlaintext(t *testing.T) {
	enc, err := NewEncryptor(testKeyHex)
	require.NoError(t, err)

	out, err := enc.Encrypt("198.51.100.23")
	require.NoError(t, err)

	otherKey := "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	require.NotEqual(t, "198.51.100.23", decryptRawForTest(t, otherKey, out))
}

func TestHeaders_ConditionalFields(t *testing.T) {
	enc, err := NewEncryptor(testKeyHex)
	require.NoError(t, err)

	headers, err := enc.Headers("", "", nil)
	require.NoError(t, err)
	require.Empty(t, headers)

	headers, err = enc.Headers("192.0.2.1", "", nil)
	require.NoError(t, err)
	require.Contains(t, headers, domain.HeaderClientIP)
	require.NotContains(t, headers, domain.HeaderAuthorization)
	require.Regexp(t, `^[0-9a-f]{32}:[0-9a-f]+$`, headers[domain.HeaderClientIP])

	headers, err = enc.Headers("", "secret-token", nil)
	require.NoError(t, err)
	require.NotContains(t, headers, domain.HeaderClientIP)
	require.Equal(t, "Bearer secret-token", headers[domain.HeaderAuthorization])
}

func TestHeaders_ExtraPassThrough(t *testing.T) {
	enc, err := NewEncryptor(testKeyHex)
	require.NoError(t, err)

	extra := map[string]string{domain.HeaderSource: domain.SourceName}
	headers, err := enc.Headers("192.0.2.1", "tok", extra)
	require.NoError(t, err)
	require.Equal(t, domain.SourceName, headers[domain.HeaderSource])
	require.Len(t, headers, 3)

	// The input map must not be mutated.
	require.Len(t, extra, 1)
}

// decryptForTest reverses Encrypt with the shared key: split iv:ct, CBC
// decrypt, strip PKCS#7 padding.
func decryptForTest(t *testing.T, hexKey, payload string) string {
	t.Helper()
	plain := decryptRawForTest(t, hexKey, payload)
	if len(plain) == 0 {
		return ""
	}
	pad := int(plain[len(plain)-1])
	if pad <= 0 || pad > aes.BlockSize || pad > len(plain) {
		t.Fatalf("invalid padding byte %d", pad)
	}
	return plain[:len(plain)-pad]
}

func decryptRawForTest(t *testing.T, hexKey, payload string) string {
	t.Helper()
	parts := strings.SplitN(payload, ":", 2)
	require.Len(t, parts, 2)

	iv, err := hex.DecodeString(parts[0])
	require.NoError(t, err)
	ct, err := hex.DecodeString(parts[1])
	require.NoError(t, err)

	key, err := hex.DecodeString(hexKey)
	require.NoError(t, err)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)
	return string(plain)
}
