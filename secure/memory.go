// Package secure provides utilities for handling sensitive byte buffers:
// explicit zeroization, constant-time comparison and secure random filling.
package secure

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"runtime"
)

// Zeroize overwrites sensitive data in place.
func Zeroize(data []byte) {
	if len(data) == 0 {
		return
	}
	for i := range data {
		data[i] = 0
	}
	// Keep the slice reachable so the writes are not optimized away.
	runtime.KeepAlive(data)
}

// ZeroizeMultiple zeroes multiple byte slices in a single call.
func ZeroizeMultiple(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}

// SecureCompare performs a constant-time comparison of two byte slices.
func SecureCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// SecureRandom fills the provided slice with cryptographically secure random
// bytes.
func SecureRandom(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := rand.Read(data); err != nil {
		return fmt.Errorf("failed to generate secure random bytes: %w", err)
	}
	return nil
}
