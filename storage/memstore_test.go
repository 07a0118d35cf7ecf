package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tessera-id/vaultkit/kdf"
	"github.com/tessera-id/vaultkit/keys"
	"github.com/tessera-id/vaultkit/storage"
	"github.com/tessera-id/vaultkit/storage/storagetest"
)

func TestMemStoreConformance(t *testing.T) {
	storagetest.RunConformance(t, func(t *testing.T) storage.Storage {
		return storage.NewMemStore()
	})
}

// TestMemStoreAtomicCreate races many creations of the same identity: exactly
// one may win, the rest must observe ErrIdentityAlreadyExists.
func TestMemStoreAtomicCreate(t *testing.T) {
	const racers = 32
	ctx := context.Background()
	s := storage.NewMemStore()

	keyPair, err := keys.Generate(keys.Ed25519)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each caller hands over its own buffer; the store wipes it.
			_, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, "main", "auth-key", keyPair.Private())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			require.ErrorIs(t, err, storage.ErrIdentityAlreadyExists)
			conflicts++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, racers-1, conflicts)
}

func TestMemStoreCreateValidatesParams(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()

	_, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, "", "auth-key", nil)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	_, _, err = s.DIDCreate(ctx, storage.DIDKindVlt, "MAINNET", "auth-key", nil)
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	_, _, err = s.DIDCreate(ctx, storage.DIDKindVlt, "main", "", nil)
	require.ErrorIs(t, err, storage.ErrInvalidInput)
}

// TestMemStoreKeyGenerateWithoutIdentity pins the documented permissive
// behavior: generating a key lazily creates the vault, so the identity then
// reports as existing.
func TestMemStoreKeyGenerateWithoutIdentity(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()

	keyPair, err := keys.Generate(keys.Ed25519)
	require.NoError(t, err)
	did, err := keys.NewDID(keyPair.Public(), "main")
	require.NoError(t, err)

	location, err := s.KeyGenerate(ctx, did, keys.X25519, "agreement-key")
	require.NoError(t, err)

	exists, err := s.DIDExists(ctx, did)
	require.NoError(t, err)
	require.True(t, exists)

	keyExists, err := s.KeyExists(ctx, did, location)
	require.NoError(t, err)
	require.True(t, keyExists)
}

func TestMemStoreEncryptionRoundTripRapid(t *testing.T) {
	ctx := context.Background()
	alice := storage.NewMemStore()
	bob := storage.NewMemStore()

	aliceDID, _, err := alice.DIDCreate(ctx, storage.DIDKindVlt, "main", "alice", nil)
	require.NoError(t, err)
	bobDID, _, err := bob.DIDCreate(ctx, storage.DIDKindVlt, "main", "bob", nil)
	require.NoError(t, err)

	bobLocation, err := bob.KeyGenerate(ctx, bobDID, keys.X25519, "agreement")
	require.NoError(t, err)
	bobPublic, err := bob.KeyPublic(ctx, bobDID, bobLocation)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 1024).Draw(rt, "plaintext")
		associatedData := rapid.SliceOfN(rapid.Byte(), 0, 64).Draw(rt, "associatedData")
		apu := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(rt, "apu")
		apv := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(rt, "apv")

		agreement := kdf.NewAgreementInfo(apu, apv, nil, nil)
		cekAlg := storage.ECDHES(agreement)
		if rapid.Bool().Draw(rt, "useKeyWrap") {
			cekAlg = storage.ECDHESA256KW(agreement)
		}

		encrypted, err := alice.DataEncrypt(ctx, aliceDID, plaintext, associatedData, storage.AES256GCM, cekAlg, bobPublic)
		require.NoError(rt, err)

		decrypted, err := bob.DataDecrypt(ctx, bobDID, encrypted, storage.AES256GCM, cekAlg, bobLocation)
		require.NoError(rt, err)
		require.Equal(rt, plaintext, decrypted, "decrypted message does not match the original")
	})
}

func TestMemStoreBlobOverwriteRapid(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, "main", "doc", nil)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		writes := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 0, 256), 1, 8).Draw(rt, "writes")
		for _, value := range writes {
			require.NoError(rt, s.BlobSet(ctx, did, value))
		}

		value, ok, err := s.BlobGet(ctx, did)
		require.NoError(rt, err)
		require.True(rt, ok)
		require.Equal(rt, writes[len(writes)-1], value)
	})
}

func TestMemStoreKeyDeleteIdempotentRapid(t *testing.T) {
	ctx := context.Background()
	s := storage.NewMemStore()

	did, _, err := s.DIDCreate(ctx, storage.DIDKindVlt, "main", "root", nil)
	require.NoError(t, err)

	rapid.Check(t, func(rt *rapid.T) {
		fragment := rapid.StringMatching(`[a-z0-9]{4,24}`).Draw(rt, "fragment")
		keyType := keys.Ed25519
		if rapid.Bool().Draw(rt, "agreement") {
			keyType = keys.X25519
		}

		location, err := s.KeyGenerate(ctx, did, keyType, fragment)
		require.NoError(rt, err)

		deleted, err := s.KeyDelete(ctx, did, location)
		require.NoError(rt, err)
		require.True(rt, deleted)

		for i := 0; i < 3; i++ {
			deleted, err = s.KeyDelete(ctx, did, location)
			require.NoError(rt, err)
			require.False(rt, deleted)
		}
	})
}
