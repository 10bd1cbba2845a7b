// Package identity encrypts caller network addresses and assembles the
// outbound request headers for the catalog client. The upstream service
// decrypts the address with the shared key; this process never does.
package identity

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"context7mcp/internal/domain"
)

// Encryptor holds the fixed-length symmetric key shared with the upstream.
// The key is configuration; it is never derived at runtime.
type Encryptor struct {
	key []byte
}

// NewEncryptor validates and decodes the hex-encoded key. The key must be
// 16, 24, or 32 bytes once decoded.
func NewEncryptor(hexKey string) (*Encryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, domain.E(domain.CodeFailedPrecond, "identity.NewEncryptor", "key is not valid hex", domain.ErrEncryptionKey)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, domain.E(domain.CodeFailedPrecond, "identity.NewEncryptor",
			fmt.Sprintf("key must be 16, 24, or 32 bytes, got %d", len(key)), domain.ErrEncryptionKey)
	}
	return &Encryptor{key: key}, nil
}

// Encrypt encrypts the UTF-8 bytes of address with AES-CBC and PKCS#7
// padding under a fresh random IV, and returns hex(iv) + ":" + hex(ct).
// Two calls with the same input produce different output.
func (e *Encryptor) Encrypt(address string) (string, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return "", domain.E(domain.CodeFailedPrecond, "identity.Encrypt", "", domain.ErrEncryptionKey)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(address), aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ct), nil
}

// Headers builds the outbound header set: a copy of extra, plus the
// encrypted-identity header iff address is non-empty, plus the bearer
// credential iff one is supplied.
func (e *Encryptor) Headers(address, credential string, extra map[string]string) (map[string]string, error) {
	headers := make(map[string]string, len(extra)+2)
	for k, v := range extra {
		headers[k] = v
	}
	if address != "" {
		encrypted, err := e.Encrypt(address)
		if err != nil {
			return nil, err
		}
		headers[domain.HeaderClientIP] = encrypted
	}
	if credential != "" {
		headers[domain.HeaderAuthorization] = "Bearer " + credential
	}
	return headers, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(pad)}, pad)...)
}
