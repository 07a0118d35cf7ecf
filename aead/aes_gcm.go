// Package aead provides authenticated encryption with associated data (AEAD)
// built on AES-256-GCM, in two shapes: a combined form that prepends the
// nonce to the sealed output, and a detached form that keeps nonce,
// ciphertext and authentication tag separate for envelope-style callers.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// NonceSize defines the standard 96-bit nonce size for GCM
	NonceSize = 12
	// TagSize defines the 128-bit authentication tag size for GCM
	TagSize = 16
	// KeySize defines the AES-256 key size
	KeySize = 32
)

// AESGCMCipher wraps AES-GCM operations with secure defaults
type AESGCMCipher struct {
	gcm cipher.AEAD
}

// NewAESGCM creates a new AES-GCM cipher with the provided 256-bit key
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size: expected %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM mode: %w", err)
	}

	return &AESGCMCipher{gcm: gcm}, nil
}

// Encrypt encrypts plaintext with additional authenticated data using a fresh
// random nonce. Returns nonce + ciphertext + tag concatenated for storage.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) ([]byte, error) {
	nonce, err := RandomNonce()
	if err != nil {
		return nil, err
	}

	sealed := a.gcm.Seal(nil, nonce, plaintext, aad)

	result := make([]byte, NonceSize+len(sealed))
	copy(result[:NonceSize], nonce)
	copy(result[NonceSize:], sealed)
	return result, nil
}

// Decrypt decrypts and authenticates data produced by Encrypt.
func (a *AESGCMCipher) Decrypt(data, aad []byte) ([]byte, error) {
	if len(data) < NonceSize+TagSize {
		return nil, fmt.Errorf("invalid ciphertext length: minimum %d bytes required", NonceSize+TagSize)
	}

	plaintext, err := a.gcm.Open(nil, data[:NonceSize], data[NonceSize:], aad)
	if err != nil {
		return nil, fmt.Errorf("decryption and authentication failed: %w", err)
	}
	return plaintext, nil
}

// SealDetached encrypts plaintext under the given nonce and returns the
// ciphertext and authentication tag separately. The ciphertext length is
// len(plaintext) + PadSize(len(plaintext)).
func (a *AESGCMCipher) SealDetached(nonce, plaintext, aad []byte) (ciphertext, tag []byte, err error) {
	if len(nonce) != NonceSize {
		return nil, nil, fmt.Errorf("invalid nonce size: expected %d bytes, got %d", NonceSize, len(nonce))
	}

	sealed := a.gcm.Seal(nil, nonce, plaintext, aad)
	split := len(sealed) - TagSize
	return sealed[:split], sealed[split:], nil
}

// OpenDetached authenticates and decrypts a detached ciphertext/tag pair.
// The returned plaintext has exactly the original length: any padding implied
// by the ciphertext length is stripped using the authenticated length.
func (a *AESGCMCipher) OpenDetached(nonce, ciphertext, tag, aad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, fmt.Errorf("invalid nonce size: expected %d bytes, got %d", NonceSize, len(nonce))
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("invalid tag size: expected %d bytes, got %d", TagSize, len(tag))
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := a.gcm.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("decryption and authentication failed: %w", err)
	}
	return plaintext, nil
}

// PadSize returns the padding added to a plaintext of the given length before
// encryption. GCM operates in counter mode and needs no block alignment, so
// the pad size is always zero; envelope sizing still goes through this so the
// accounting holds if a block-aligned cipher is ever added.
func PadSize(plaintextLen int) int {
	_ = plaintextLen
	return 0
}

// RandomNonce creates a cryptographically secure 96-bit nonce.
func RandomNonce() ([]byte, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return nonce, nil
}
