package keys_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/keys"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestGenerate(t *testing.T) {
	for _, keyType := range []keys.KeyType{keys.Ed25519, keys.X25519} {
		t.Run(keyType.String(), func(t *testing.T) {
			keyPair, err := keys.Generate(keyType)
			require.NoError(t, err)
			require.Equal(t, keyType, keyPair.Type())
			require.Len(t, keyPair.Public(), keys.PublicKeyLength)
			require.Len(t, keyPair.Private(), keys.PrivateKeyLength)

			// Two generations must never collide.
			other, err := keys.Generate(keyType)
			require.NoError(t, err)
			require.NotEqual(t, keyPair.Private(), other.Private())
		})
	}
}

func TestFromPrivateKeyRejectsBadLength(t *testing.T) {
	_, err := keys.FromPrivateKey(keys.Ed25519, []byte{1, 2, 3})
	require.Error(t, err)

	_, err = keys.FromPrivateKey(keys.X25519, make([]byte, 64))
	require.Error(t, err)
}

func TestFromPrivateKeyCopiesInput(t *testing.T) {
	private := make([]byte, keys.PrivateKeyLength)
	for i := range private {
		private[i] = byte(i)
	}
	keyPair, err := keys.FromPrivateKey(keys.Ed25519, private)
	require.NoError(t, err)

	// Mutating the caller's buffer must not affect the key pair.
	private[0] ^= 0xff
	require.Equal(t, byte(0), keyPair.Private()[0])
}

// TestSignEd25519Vector checks signing against RFC 8032 test vector 2.
func TestSignEd25519Vector(t *testing.T) {
	private := mustDecodeHex(t, "4ccd089b28ff96da9db6c346ec114e0f5b8a319f35aba624da8cf6ed4fb8a6fb")
	expectedPublic := mustDecodeHex(t, "3d4017c3e843895a92b70aa74d1b7ebc9c982ccf2ec4968cc0cd55f12af4660c")
	message := []byte{0x72}
	expectedSignature := mustDecodeHex(t,
		"92a009a9f0d4cab8720e820b5f642540a2b27b5416503f8fb3762223ebdb69da"+
			"085ac1e43e15996e458f3613d0f11d8c387b2eaeb4302aeeb00d291612bb0c00")

	keyPair, err := keys.FromPrivateKey(keys.Ed25519, private)
	require.NoError(t, err)
	require.Equal(t, expectedPublic, keyPair.Public())

	signature, err := keyPair.Sign(message)
	require.NoError(t, err)
	require.Equal(t, expectedSignature, signature)
	require.True(t, ed25519.Verify(keyPair.Public(), message, signature))
}

func TestSignRejectsX25519(t *testing.T) {
	keyPair, err := keys.Generate(keys.X25519)
	require.NoError(t, err)

	_, err = keyPair.Sign([]byte("message"))
	require.Error(t, err)
}

// TestSharedSecretSymmetry checks that both sides of an X25519 exchange
// derive the same secret.
func TestSharedSecretSymmetry(t *testing.T) {
	alice, err := keys.Generate(keys.X25519)
	require.NoError(t, err)
	bob, err := keys.Generate(keys.X25519)
	require.NoError(t, err)

	aliceShared, err := alice.SharedSecret(bob.Public())
	require.NoError(t, err)
	bobShared, err := bob.SharedSecret(alice.Public())
	require.NoError(t, err)

	require.Equal(t, aliceShared, bobShared)
	require.Len(t, aliceShared, 32)
}

func TestSharedSecretRejectsEd25519(t *testing.T) {
	signer, err := keys.Generate(keys.Ed25519)
	require.NoError(t, err)
	peer, err := keys.Generate(keys.X25519)
	require.NoError(t, err)

	_, err = signer.SharedSecret(peer.Public())
	require.Error(t, err)
}

func TestZeroize(t *testing.T) {
	keyPair, err := keys.Generate(keys.Ed25519)
	require.NoError(t, err)
	keyPair.Zeroize()

	require.Equal(t, make([]byte, keys.PrivateKeyLength), keyPair.Private())
}
