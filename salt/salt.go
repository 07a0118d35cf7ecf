// Package salt provides cryptographically secure salt generation for use in
// key derivation.
package salt

import (
	"crypto/rand"
	"fmt"
	"io"
)

const (
	// DefaultSize defines the recommended salt size (256 bits)
	DefaultSize = 32
	// MinSize defines the minimum acceptable salt size (128 bits)
	MinSize = 16
)

// Generate creates a new cryptographically secure salt of the specified size
func Generate(size int) ([]byte, error) {
	if size < MinSize {
		return nil, fmt.Errorf("salt size too small: minimum %d bytes required", MinSize)
	}
	out := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, out); err != nil {
		return nil, fmt.Errorf("failed to generate random salt: %w", err)
	}
	return out, nil
}

// Validate checks that existing salt bytes meet the minimum size
func Validate(data []byte) error {
	if len(data) < MinSize {
		return fmt.Errorf("salt too small: minimum %d bytes required, got %d", MinSize, len(data))
	}
	return nil
}
