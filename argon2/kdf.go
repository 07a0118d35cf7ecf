// Package argon2 provides passphrase-based key derivation using Argon2id.
package argon2

import "golang.org/x/crypto/argon2"

// Config defines Argon2id parameters
type Config struct {
	Time        uint32 // Number of iterations
	Memory      uint32 // Memory in KB
	Parallelism uint8  // Number of threads
	KeyLength   uint32 // Output key length in bytes
}

// DefaultConfig returns secure default parameters
func DefaultConfig() *Config {
	return &Config{
		Time:        1,
		Memory:      64 * 1024, // 64MB
		Parallelism: 4,
		KeyLength:   32,
	}
}

// LightConfig returns lighter parameters for testing
func LightConfig() *Config {
	return &Config{
		Time:        1,
		Memory:      8 * 1024, // 8MB
		Parallelism: 2,
		KeyLength:   32,
	}
}

// DeriveKey derives a key of the configured length from a passphrase and salt.
// The same passphrase, salt and parameters always produce the same key.
func (c *Config) DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, c.Time, c.Memory, c.Parallelism, c.KeyLength)
}
