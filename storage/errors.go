package storage

import "github.com/pkg/errors"

// Typed errors shared by every backend. Implementations wrap these with
// context; callers match with errors.Is. Cryptographic failures wrap the
// underlying primitive's reason but never include key material.
var (
	// ErrIdentityAlreadyExists is returned by DIDCreate when the derived
	// identifier is already registered.
	ErrIdentityAlreadyExists = errors.New("identity already exists")

	// ErrVaultNotFound is returned by key operations when no vault exists for
	// the identifier. Lookups on a missing vault return this, never an empty
	// success.
	ErrVaultNotFound = errors.New("key vault not found")

	// ErrKeyNotFound is returned when the vault exists but holds no key at
	// the given location.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidPrivateKey is returned for private key bytes that do not form
	// a valid key of the declared type, or for a key whose type cannot serve
	// the requested operation's private-key role.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrInvalidPublicKey is returned for malformed public key bytes.
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrUnsupportedOperation is returned when an operation is invoked on a
	// key type that does not support it, such as signing with an
	// agreement-only key.
	ErrUnsupportedOperation = errors.New("unsupported operation for key type")

	// ErrEncryptionFailure wraps failures of the encryption primitives.
	ErrEncryptionFailure = errors.New("encryption failure")

	// ErrDecryptionFailure wraps failures of the decryption primitives,
	// including authentication failures and truncated wrapped keys.
	ErrDecryptionFailure = errors.New("decryption failure")

	// ErrInvalidInput is returned for malformed request parameters detected
	// before any cryptographic primitive runs.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendIO is returned when a backend's underlying medium fails.
	ErrBackendIO = errors.New("backend i/o failure")
)
