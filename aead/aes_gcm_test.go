package aead_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/aead"
)

func newCipher(t *testing.T) *aead.AESGCMCipher {
	t.Helper()
	key := bytes.Repeat([]byte{0x42}, aead.KeySize)
	c, err := aead.NewAESGCM(key)
	require.NoError(t, err)
	return c
}

func TestNewAESGCMKeySize(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{"valid 256-bit key", 32, false},
		{"empty key", 0, true},
		{"128-bit key", 16, true},
		{"oversized key", 64, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := aead.NewAESGCM(make([]byte, tt.keyLen))
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := newCipher(t)

	tests := []struct {
		name      string
		plaintext []byte
		aad       []byte
	}{
		{"empty plaintext", nil, nil},
		{"short message", []byte("hello"), nil},
		{"with associated data", []byte("hello"), []byte("header")},
		{"binary payload", bytes.Repeat([]byte{0x00, 0xff}, 512), []byte{0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := c.Encrypt(tt.plaintext, tt.aad)
			require.NoError(t, err)
			require.Len(t, sealed, aead.NonceSize+len(tt.plaintext)+aead.TagSize)

			plaintext, err := c.Decrypt(sealed, tt.aad)
			require.NoError(t, err)
			require.Equal(t, len(tt.plaintext), len(plaintext))
			require.Equal(t, append([]byte{}, tt.plaintext...), append([]byte{}, plaintext...))
		})
	}
}

func TestDecryptRejectsTampering(t *testing.T) {
	c := newCipher(t)

	sealed, err := c.Encrypt([]byte("payload"), []byte("aad"))
	require.NoError(t, err)

	// Flipped ciphertext bit.
	tampered := append([]byte{}, sealed...)
	tampered[aead.NonceSize] ^= 0x01
	_, err = c.Decrypt(tampered, []byte("aad"))
	require.Error(t, err)

	// Wrong associated data.
	_, err = c.Decrypt(sealed, []byte("other"))
	require.Error(t, err)

	// Truncated input.
	_, err = c.Decrypt(sealed[:aead.NonceSize+aead.TagSize-1], []byte("aad"))
	require.Error(t, err)
}

func TestSealOpenDetached(t *testing.T) {
	c := newCipher(t)

	nonce, err := aead.RandomNonce()
	require.NoError(t, err)

	plaintext := []byte("detached mode payload")
	aad := []byte("envelope header")

	ciphertext, tag, err := c.SealDetached(nonce, plaintext, aad)
	require.NoError(t, err)
	require.Len(t, ciphertext, len(plaintext)+aead.PadSize(len(plaintext)))
	require.Len(t, tag, aead.TagSize)

	opened, err := c.OpenDetached(nonce, ciphertext, tag, aad)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)

	// Tag and ciphertext must both authenticate.
	badTag := append([]byte{}, tag...)
	badTag[0] ^= 0x01
	_, err = c.OpenDetached(nonce, ciphertext, badTag, aad)
	require.Error(t, err)

	badNonce := append([]byte{}, nonce...)
	badNonce[0] ^= 0x01
	_, err = c.OpenDetached(badNonce, ciphertext, tag, aad)
	require.Error(t, err)
}

func TestSealDetachedValidatesNonce(t *testing.T) {
	c := newCipher(t)

	_, _, err := c.SealDetached(make([]byte, 8), []byte("x"), nil)
	require.Error(t, err)

	_, err = c.OpenDetached(make([]byte, 8), []byte("x"), make([]byte, aead.TagSize), nil)
	require.Error(t, err)

	_, err = c.OpenDetached(make([]byte, aead.NonceSize), []byte("x"), make([]byte, 4), nil)
	require.Error(t, err)
}

func TestEncryptUsesFreshNonces(t *testing.T) {
	c := newCipher(t)

	first, err := c.Encrypt([]byte("same message"), nil)
	require.NoError(t, err)
	second, err := c.Encrypt([]byte("same message"), nil)
	require.NoError(t, err)

	require.NotEqual(t, first[:aead.NonceSize], second[:aead.NonceSize])
	require.NotEqual(t, first, second)
}
