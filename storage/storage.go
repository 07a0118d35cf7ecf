// Package storage defines the pluggable key-storage contract of the vault
// layer and provides its in-memory reference implementation. A backend owns
// all vaults (per-identity key sets) and blobs (per-identity opaque state)
// for its lifetime and is the single source of truth for existence and key
// material. The conformance suite in storage/storagetest is the executable
// form of this contract; every implementation must pass it.
package storage

import (
	"context"

	"github.com/tessera-id/vaultkit/keys"
)

// Storage is the operation set every backend must implement. All methods are
// safe for concurrent use. Methods return the typed errors of this package;
// idempotent removals signal "nothing to do" through their boolean result
// rather than an error.
type Storage interface {
	// DIDCreate registers a new identity. If privateKey is non-nil the
	// signing key pair is reconstructed from it, otherwise a fresh Ed25519
	// pair is generated. The identifier is derived from the public key and
	// network. Returns ErrIdentityAlreadyExists if the derived identifier is
	// already registered; the existence check and registration are atomic
	// with respect to concurrent callers. The privateKey buffer is wiped
	// before returning, on success and failure alike.
	DIDCreate(ctx context.Context, kind DIDKind, network, fragment string, privateKey []byte) (keys.DID, keys.Location, error)

	// DIDPurge removes the identity's vault and blob. Idempotent: reports
	// whether anything was actually removed.
	DIDPurge(ctx context.Context, did keys.DID) (bool, error)

	// DIDExists reports whether the identity is known to this backend. A
	// failure to perform the check is an error, never a false.
	DIDExists(ctx context.Context, did keys.DID) (bool, error)

	// DIDList returns all identifiers registered with this backend.
	DIDList(ctx context.Context) ([]keys.DID, error)

	// KeyGenerate creates a new key pair of the given type under the
	// identity and returns its location. The reference backend creates the
	// vault lazily if the identity was never registered through DIDCreate;
	// stricter backends may refuse. This permissiveness is deliberate,
	// documented behavior.
	KeyGenerate(ctx context.Context, did keys.DID, keyType keys.KeyType, fragment string) (keys.Location, error)

	// KeyInsert reconstructs a key pair from raw private key bytes according
	// to the key type encoded in location and stores it there. The
	// privateKey buffer is wiped after use regardless of the outcome.
	KeyInsert(ctx context.Context, did keys.DID, location keys.Location, privateKey []byte) error

	// KeyExists reports whether a key exists at the location. A missing
	// vault yields false, not an error.
	KeyExists(ctx context.Context, did keys.DID, location keys.Location) (bool, error)

	// KeyPublic returns the raw public key bytes stored at the location.
	KeyPublic(ctx context.Context, did keys.DID, location keys.Location) ([]byte, error)

	// KeyDelete removes the key at the location. Idempotent: reports whether
	// a deletion actually occurred.
	KeyDelete(ctx context.Context, did keys.DID, location keys.Location) (bool, error)

	// KeySign signs the message with the key at the location. Only permitted
	// for signing-capable key types; returns ErrUnsupportedOperation for
	// agreement-only types.
	KeySign(ctx context.Context, did keys.DID, location keys.Location, message []byte) ([]byte, error)

	// DataEncrypt encrypts plaintext for the holder of publicKey using
	// authenticated key agreement. A fresh ephemeral agreement key and a
	// fresh nonce are generated per call; neither is ever reused.
	DataEncrypt(ctx context.Context, did keys.DID, plaintext, associatedData []byte, encAlg EncryptionAlgorithm, cekAlg CekAlgorithm, publicKey []byte) (*EncryptedData, error)

	// DataDecrypt reverses DataEncrypt using the static agreement private
	// key stored at privateKey under the identity. Signing keys are rejected
	// with ErrInvalidPrivateKey: the key type encodes usage capability.
	DataDecrypt(ctx context.Context, did keys.DID, data *EncryptedData, encAlg EncryptionAlgorithm, cekAlg CekAlgorithm, privateKey keys.Location) ([]byte, error)

	// BlobSet associates arbitrary bytes with the identity, overwriting any
	// previous value wholesale.
	BlobSet(ctx context.Context, did keys.DID, value []byte) error

	// BlobGet returns the bytes last stored for the identity and whether a
	// value was present.
	BlobGet(ctx context.Context, did keys.DID) ([]byte, bool, error)

	// Flush is a durability hint. Backends without a persistent medium may
	// treat it as a no-op.
	Flush(ctx context.Context) error
}
