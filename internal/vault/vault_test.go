package vault_test

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/triskcraft/custodian/internal/vault"
)

func newVault(t *testing.T) *vault.Vault {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	v, err := vault.New(key)
	require.NoError(t, err)

	return v
}

func TestNewRejectsBadKeySize(t *testing.T) {
	t.Parallel()

	for _, size := range []int{0, 16, 24, 31, 33, 64} {
		_, err := vault.New(make([]byte, size))
		assert.ErrorIs(t, err, vault.ErrInvalidKeySize)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	v := newVault(t)

	for _, plaintext := range []string{
		"",
		"a",
		"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		"unicode: ñandú 🪓",
	} {
		payload, err := v.Encrypt(plaintext)
		require.NoError(t, err)

		decrypted, err := v.Decrypt(payload)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decrypted)
	}
}

func TestEncryptPayloadShape(t *testing.T) {
	t.Parallel()

	v := newVault(t)

	payload, err := v.Encrypt("secret")
	require.NoError(t, err)

	parts := strings.Split(payload, ":")
	require.Len(t, parts, 3)

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 12)

	tag, err := base64.StdEncoding.DecodeString(parts[2])
	require.NoError(t, err)
	assert.Len(t, tag, 16)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	t.Parallel()

	v := newVault(t)

	first, err := v.Encrypt("secret")
	require.NoError(t, err)

	second, err := v.Encrypt("secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsTampering(t *testing.T) {
	t.Parallel()

	v := newVault(t)

	payload, err := v.Encrypt("the secret value")
	require.NoError(t, err)

	parts := strings.Split(payload, ":")
	require.Len(t, parts, 3)

	// Flip one byte in each section in turn
	for i := range parts {
		raw, err := base64.StdEncoding.DecodeString(parts[i])
		require.NoError(t, err)
		require.NotEmpty(t, raw)

		raw[0] ^= 0x01

		tampered := make([]string, 3)
		copy(tampered, parts)
		tampered[i] = base64.StdEncoding.EncodeToString(raw)

		_, err = v.Decrypt(strings.Join(tampered, ":"))
		assert.Error(t, err, "tampered section %d must not decrypt", i)
	}
}

func TestDecryptRejectsMalformedPayloads(t *testing.T) {
	t.Parallel()

	v := newVault(t)

	for _, payload := range []string{
		"",
		"::",
		"onlyonepart",
		"two:parts",
		"a:b:c:d",
		"!!!:###:$$$",
	} {
		_, err := v.Decrypt(payload)
		assert.ErrorIs(t, err, vault.ErrInvalidPayload, "payload %q", payload)
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	t.Parallel()

	payload, err := newVault(t).Encrypt("secret")
	require.NoError(t, err)

	_, err = newVault(t).Decrypt(payload)
	assert.ErrorIs(t, err, vault.ErrDecryptionError)
}
