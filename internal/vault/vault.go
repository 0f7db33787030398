// Package vault provides authenticated encryption for per-token secrets at
// rest. Payloads are AES-256-GCM with a random 96-bit nonce per call and a
// 128-bit authentication tag, serialized as base64(iv):base64(ct):base64(tag).
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidKeySize  = errors.New("vault key must be 32 bytes")
	ErrInvalidPayload  = errors.New("malformed vault payload")
	ErrDecryptionError = errors.New("vault payload failed authentication")
)

// Vault encrypts and decrypts secrets with a process-wide symmetric key
// loaded once at startup.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals the plaintext and returns the canonical at-rest payload.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the tag to the ciphertext
	tagStart := len(sealed) - v.aead.Overhead()
	ciphertext := sealed[:tagStart]
	tag := sealed[tagStart:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(ciphertext),
		base64.StdEncoding.EncodeToString(tag),
	}, ":"), nil
}

// Decrypt opens a payload produced by Encrypt. Any tampering with the
// nonce, ciphertext or tag fails authentication and returns an error;
// there is no silent fallback.
func (v *Vault) Decrypt(payload string) (string, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return "", ErrInvalidPayload
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != v.aead.NonceSize() {
		return "", ErrInvalidPayload
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrInvalidPayload
	}

	tag, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(tag) != v.aead.Overhead() {
		return "", ErrInvalidPayload
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecryptionError
	}

	return string(plaintext), nil
}
