// Package storagetest contains the executable conformance suite for the
// storage contract. It is written once against the Storage interface and must
// pass unchanged for every backend. Tests rely on multiple contract methods
// at once, so the suite should only run against a complete implementation.
package storagetest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/kdf"
	"github.com/tessera-id/vaultkit/keys"
	"github.com/tessera-id/vaultkit/storage"
)

// Factory returns a fresh, empty backend for one conformance check.
type Factory func(t *testing.T) storage.Storage

// RunConformance runs the full suite, building a fresh backend per check.
func RunConformance(t *testing.T, factory Factory) {
	t.Run("DIDCreateWithPrivateKey", func(t *testing.T) { DIDCreateWithPrivateKey(t, factory(t)) })
	t.Run("DIDCreateGenerateKey", func(t *testing.T) { DIDCreateGenerateKey(t, factory(t)) })
	t.Run("KeyGenerate", func(t *testing.T) { KeyGenerate(t, factory(t)) })
	t.Run("KeyInsert", func(t *testing.T) { KeyInsert(t, factory(t)) })
	t.Run("KeyDelete", func(t *testing.T) { KeyDelete(t, factory(t)) })
	t.Run("KeySignEd25519", func(t *testing.T) { KeySignEd25519(t, factory(t)) })
	t.Run("DIDList", func(t *testing.T) { DIDList(t, factory(t)) })
	t.Run("BlobStore", func(t *testing.T) { BlobStore(t, factory(t)) })
	t.Run("DIDPurge", func(t *testing.T) { DIDPurge(t, factory(t)) })
	t.Run("ErrorTaxonomy", func(t *testing.T) { ErrorTaxonomy(t, factory(t)) })
	t.Run("Encryption", func(t *testing.T) { Encryption(t, factory(t), factory(t)) })
}

const network = "main"

func randomFragment(t *testing.T) string {
	t.Helper()
	buf := make([]byte, 16)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return hex.EncodeToString(buf)
}

// DIDCreateWithPrivateKey checks that creating an identity from a supplied
// private key derives the expected identifier and location, and that a second
// creation from the same key fails with ErrIdentityAlreadyExists.
func DIDCreateWithPrivateKey(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	fragment := randomFragment(t)

	keyPair, err := keys.Generate(keys.Ed25519)
	require.NoError(t, err)

	expectedDID, err := keys.NewDID(keyPair.Public(), network)
	require.NoError(t, err)
	expectedLocation := keys.NewLocation(keys.Ed25519, fragment, keyPair.Public())

	did, location, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, fragment, keyPair.Private())
	require.NoError(t, err, "DIDCreate returned an error")

	require.Equal(t, expectedDID, did)
	require.Equal(t, expectedLocation, location)

	exists, err := s.KeyExists(ctx, did, location)
	require.NoError(t, err)
	require.True(t, exists, "expected key at location %s to exist", location)

	_, _, err = s.DIDCreate(ctx, storage.DIDKindVlt, network, fragment, keyPair.Private())
	require.ErrorIs(t, err, storage.ErrIdentityAlreadyExists,
		"expected DIDCreate to fail when creating an identity from the same private key twice")

	public, err := s.KeyPublic(ctx, did, location)
	require.NoError(t, err)
	require.Equal(t, keyPair.Public(), public)
}

// DIDCreateGenerateKey checks identity creation with a backend-generated key.
func DIDCreateGenerateKey(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	fragment := randomFragment(t)
	devNetwork := "dev"

	did, location, err := s.DIDCreate(ctx, storage.DIDKindVlt, devNetwork, fragment, nil)
	require.NoError(t, err, "DIDCreate returned an error")
	require.Equal(t, devNetwork, did.Network())

	exists, err := s.KeyExists(ctx, did, location)
	require.NoError(t, err)
	require.True(t, exists)

	// The identifier must be reproducible from the stored public key.
	public, err := s.KeyPublic(ctx, did, location)
	require.NoError(t, err)
	expectedDID, err := keys.NewDID(public, devNetwork)
	require.NoError(t, err)
	require.Equal(t, expectedDID, did)
}

// KeyGenerate checks generation of both key types under one identity.
func KeyGenerate(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
	require.NoError(t, err)

	for _, keyType := range []keys.KeyType{keys.Ed25519, keys.X25519} {
		location, err := s.KeyGenerate(ctx, did, keyType, randomFragment(t))
		require.NoError(t, err, "KeyGenerate returned an error")
		require.Equal(t, keyType, location.KeyType)

		exists, err := s.KeyExists(ctx, did, location)
		require.NoError(t, err)
		require.True(t, exists, "expected key at location %s to exist", location)

		public, err := s.KeyPublic(ctx, did, location)
		require.NoError(t, err)
		require.Len(t, public, keys.PublicKeyLength)
	}
}

// KeyInsert checks reconstruction of both key types from raw private bytes.
func KeyInsert(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
	require.NoError(t, err)

	for _, keyType := range []keys.KeyType{keys.Ed25519, keys.X25519} {
		keyPair, err := keys.Generate(keyType)
		require.NoError(t, err)
		location := keys.NewLocation(keyType, randomFragment(t), keyPair.Public())

		err = s.KeyInsert(ctx, did, location, keyPair.Private())
		require.NoError(t, err, "KeyInsert returned an error")

		exists, err := s.KeyExists(ctx, did, location)
		require.NoError(t, err)
		require.True(t, exists)

		public, err := s.KeyPublic(ctx, did, location)
		require.NoError(t, err)
		require.Equal(t, keyPair.Public(), public)
	}

	// Malformed private key bytes are rejected before storage is touched.
	badLocation := keys.NewLocation(keys.Ed25519, randomFragment(t), make([]byte, keys.PublicKeyLength))
	err = s.KeyInsert(ctx, did, badLocation, []byte{1, 2, 3})
	require.ErrorIs(t, err, storage.ErrInvalidPrivateKey)
}

// KeyDelete checks that deletion is idempotent: true exactly once per key.
func KeyDelete(t *testing.T, s storage.Storage) {
	const numKeys = 20
	ctx := context.Background()

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
	require.NoError(t, err)

	locations := make([]keys.Location, 0, numKeys)
	for i := 0; i < numKeys; i++ {
		location, err := s.KeyGenerate(ctx, did, keys.Ed25519, randomFragment(t))
		require.NoError(t, err)
		locations = append(locations, location)
	}

	for _, location := range locations {
		exists, err := s.KeyExists(ctx, did, location)
		require.NoError(t, err)
		require.True(t, exists)

		deleted, err := s.KeyDelete(ctx, did, location)
		require.NoError(t, err)
		require.True(t, deleted, "expected key at location %s to be deleted", location)

		deleted, err = s.KeyDelete(ctx, did, location)
		require.NoError(t, err)
		require.False(t, deleted, "expected key at location %s to already be deleted", location)
	}
}

// KeySignEd25519 checks signing against Test 2 of RFC 8032, section 7.
func KeySignEd25519(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	privateKey, err := hex.DecodeString("4ccd089b28ff96da9db6c346ec114e0f5b8a319f35aba624da8cf6ed4fb8a6fb")
	require.NoError(t, err)
	message := []byte{0x72}
	expectedSignature, err := hex.DecodeString(
		"92a009a9f0d4cab8720e820b5f642540a2b27b5416503f8fb3762223ebdb69da" +
			"085ac1e43e15996e458f3613d0f11d8c387b2eaeb4302aeeb00d291612bb0c00")
	require.NoError(t, err)

	did, location, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), privateKey)
	require.NoError(t, err)

	signature, err := s.KeySign(ctx, did, location, message)
	require.NoError(t, err, "KeySign returned an error")
	require.Equal(t, expectedSignature, signature)
}

// DIDList checks listing consistency across sequential creations.
func DIDList(t *testing.T, s storage.Storage) {
	const numIdentities = 20
	ctx := context.Background()

	list, err := s.DIDList(ctx)
	require.NoError(t, err)
	require.Empty(t, list, "expected list to be empty")

	for i := 0; i < numIdentities; i++ {
		did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
		require.NoError(t, err)

		exists, err := s.DIDExists(ctx, did)
		require.NoError(t, err)
		require.True(t, exists, "expected did %s to exist", did)

		list, err := s.DIDList(ctx)
		require.NoError(t, err)
		require.Len(t, list, i+1)
	}
}

// BlobStore checks the per-identity opaque blob: absent for a new identity,
// wholesale overwrite on each write.
func BlobStore(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
	require.NoError(t, err)

	_, ok, err := s.BlobGet(ctx, did)
	require.NoError(t, err)
	require.False(t, ok, "expected BlobGet to report no value for a new identity")

	first := []byte(`{"doc":"state-1"}`)
	require.NoError(t, s.BlobSet(ctx, did, first))

	value, ok, err := s.BlobGet(ctx, did)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first, value)

	second := []byte(`{"chain":"state-2","prev":"ff"}`)
	require.NoError(t, s.BlobSet(ctx, did, second))

	value, ok, err = s.BlobGet(ctx, did)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, second, value, "expected only the last-written value to be retrievable")
}

// DIDPurge checks purge completeness and idempotence.
func DIDPurge(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	did, location, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
	require.NoError(t, err)

	list, err := s.DIDList(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.BlobSet(ctx, did, []byte("chain state")))

	purged, err := s.DIDPurge(ctx, did)
	require.NoError(t, err)
	require.True(t, purged, "expected did %s to have been purged", did)

	_, ok, err := s.BlobGet(ctx, did)
	require.NoError(t, err)
	require.False(t, ok, "expected BlobGet to report no value after purging")

	exists, err := s.KeyExists(ctx, did, location)
	require.NoError(t, err)
	require.False(t, exists, "expected key at location %s to no longer exist after purge", location)

	didExists, err := s.DIDExists(ctx, did)
	require.NoError(t, err)
	require.False(t, didExists)

	list, err = s.DIDList(ctx)
	require.NoError(t, err)
	require.Empty(t, list)

	purged, err = s.DIDPurge(ctx, did)
	require.NoError(t, err)
	require.False(t, purged, "expected second purge to be a no-op")
}

// ErrorTaxonomy checks that backends return the shared typed errors.
func ErrorTaxonomy(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	unknownPair, err := keys.Generate(keys.Ed25519)
	require.NoError(t, err)
	unknownDID, err := keys.NewDID(unknownPair.Public(), network)
	require.NoError(t, err)
	unknownLocation := keys.NewLocation(keys.Ed25519, randomFragment(t), unknownPair.Public())

	// Lookups on a missing vault report VaultNotFound, never empty success.
	_, err = s.KeyPublic(ctx, unknownDID, unknownLocation)
	require.ErrorIs(t, err, storage.ErrVaultNotFound)
	_, err = s.KeySign(ctx, unknownDID, unknownLocation, []byte("msg"))
	require.ErrorIs(t, err, storage.ErrVaultNotFound)
	_, err = s.KeyDelete(ctx, unknownDID, unknownLocation)
	require.ErrorIs(t, err, storage.ErrVaultNotFound)

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
	require.NoError(t, err)

	_, err = s.KeyPublic(ctx, did, unknownLocation)
	require.ErrorIs(t, err, storage.ErrKeyNotFound)

	// Signing with an agreement-only key type is rejected.
	agreementLocation, err := s.KeyGenerate(ctx, did, keys.X25519, randomFragment(t))
	require.NoError(t, err)
	_, err = s.KeySign(ctx, did, agreementLocation, []byte("msg"))
	require.ErrorIs(t, err, storage.ErrUnsupportedOperation)

	// Decrypting with a signing key type is rejected by private key class.
	signingLocation, err := s.KeyGenerate(ctx, did, keys.Ed25519, randomFragment(t))
	require.NoError(t, err)
	agreement := kdf.NewAgreementInfo([]byte("alice"), []byte("bob"), nil, nil)
	envelope := &storage.EncryptedData{EphemeralPublicKey: make([]byte, keys.PublicKeyLength)}
	_, err = s.DataDecrypt(ctx, did, envelope, storage.AES256GCM, storage.ECDHES(agreement), signingLocation)
	require.ErrorIs(t, err, storage.ErrInvalidPrivateKey)

	// Malformed recipient public keys are rejected before any primitive runs.
	_, err = s.DataEncrypt(ctx, did, []byte("msg"), nil, storage.AES256GCM, storage.ECDHES(agreement), []byte("short"))
	require.ErrorIs(t, err, storage.ErrInvalidPublicKey)
}

// Encryption checks the two-party round trip for both content-encryption-key
// algorithms: Alice encrypts against Bob's static agreement key, Bob decrypts
// with the stored private half.
func Encryption(t *testing.T, aliceStore, bobStore storage.Storage) {
	ctx := context.Background()
	agreement := kdf.NewAgreementInfo([]byte("Alice"), []byte("Bob"), nil, nil)

	for _, cekAlg := range []storage.CekAlgorithm{
		storage.ECDHES(agreement),
		storage.ECDHESA256KW(agreement),
	} {
		aliceDID, _, err := aliceStore.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
		require.NoError(t, err)
		bobDID, _, err := bobStore.DIDCreate(ctx, storage.DIDKindVlt, network, randomFragment(t), nil)
		require.NoError(t, err)

		// The receiver shares a static X25519 public key.
		bobLocation, err := bobStore.KeyGenerate(ctx, bobDID, keys.X25519, randomFragment(t))
		require.NoError(t, err)
		bobPublic, err := bobStore.KeyPublic(ctx, bobDID, bobLocation)
		require.NoError(t, err)

		plaintext := []byte("This msg will be encrypted and decrypted")
		associatedData := []byte("associated_data")

		encrypted, err := aliceStore.DataEncrypt(ctx, aliceDID, plaintext, associatedData, storage.AES256GCM, cekAlg, bobPublic)
		require.NoError(t, err, "DataEncrypt returned an error (%s)", cekAlg.Name())
		require.Len(t, encrypted.EphemeralPublicKey, keys.PublicKeyLength)

		decrypted, err := bobStore.DataDecrypt(ctx, bobDID, encrypted, storage.AES256GCM, cekAlg, bobLocation)
		require.NoError(t, err, "DataDecrypt returned an error (%s)", cekAlg.Name())
		require.Equal(t, plaintext, decrypted)

		// Tampering with the associated data must break authentication.
		tampered := *encrypted
		tampered.AssociatedData = []byte("tampered")
		_, err = bobStore.DataDecrypt(ctx, bobDID, &tampered, storage.AES256GCM, cekAlg, bobLocation)
		require.ErrorIs(t, err, storage.ErrDecryptionFailure)
	}
}
