package badgerstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/argon2"
	"github.com/tessera-id/vaultkit/badgerstore"
	"github.com/tessera-id/vaultkit/keys"
	"github.com/tessera-id/vaultkit/storage"
	"github.com/tessera-id/vaultkit/storage/storagetest"
)

func testConfig(path string) badgerstore.Config {
	return badgerstore.Config{
		Path:       path,
		Passphrase: []byte("conformance-passphrase"),
		KDF:        argon2.LightConfig(),
	}
}

func TestBadgerStoreConformance(t *testing.T) {
	storagetest.RunConformance(t, func(t *testing.T) storage.Storage {
		s, err := badgerstore.Open(testConfig(""))
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, s.Close()) })
		return s
	})
}

// TestBadgerStorePersistence closes and reopens an on-disk store and checks
// that identities, keys, and blobs survive.
func TestBadgerStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := badgerstore.Open(testConfig(dir))
	require.NoError(t, err)

	did, location, err := s.DIDCreate(ctx, storage.DIDKindVlt, "main", "auth-key", nil)
	require.NoError(t, err)
	public, err := s.KeyPublic(ctx, did, location)
	require.NoError(t, err)
	require.NoError(t, s.BlobSet(ctx, did, []byte("identity state")))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close())

	reopened, err := badgerstore.Open(testConfig(dir))
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	exists, err := reopened.DIDExists(ctx, did)
	require.NoError(t, err)
	require.True(t, exists)

	publicAfter, err := reopened.KeyPublic(ctx, did, location)
	require.NoError(t, err)
	require.Equal(t, public, publicAfter)

	list, err := reopened.DIDList(ctx)
	require.NoError(t, err)
	require.Equal(t, []keys.DID{did}, list)

	value, ok, err := reopened.BlobGet(ctx, did)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("identity state"), value)

	signature, err := reopened.KeySign(ctx, did, location, []byte("still signing"))
	require.NoError(t, err)
	require.Len(t, signature, 64)
}

// TestBadgerStoreWrongPassphrase reopens a store with a different passphrase;
// records are present but fail to unseal.
func TestBadgerStoreWrongPassphrase(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := badgerstore.Open(testConfig(dir))
	require.NoError(t, err)
	did, location, err := s.DIDCreate(ctx, storage.DIDKindVlt, "main", "auth-key", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	cfg := testConfig(dir)
	cfg.Passphrase = []byte("not-the-passphrase")
	reopened, err := badgerstore.Open(cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	_, err = reopened.KeyPublic(ctx, did, location)
	require.ErrorIs(t, err, storage.ErrBackendIO)
}
