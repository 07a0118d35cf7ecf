package secure_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/secure"
)

func TestZeroize(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	secure.Zeroize(buf)
	require.Equal(t, []byte{0, 0, 0, 0}, buf)

	// Nil and empty slices are no-ops.
	secure.Zeroize(nil)
	secure.Zeroize([]byte{})
}

func TestZeroizeMultiple(t *testing.T) {
	a := []byte{1, 2}
	b := []byte{3, 4, 5}
	secure.ZeroizeMultiple(a, nil, b)
	require.Equal(t, []byte{0, 0}, a)
	require.Equal(t, []byte{0, 0, 0}, b)
}

func TestSecureCompare(t *testing.T) {
	require.True(t, secure.SecureCompare([]byte("abc"), []byte("abc")))
	require.False(t, secure.SecureCompare([]byte("abc"), []byte("abd")))
	require.False(t, secure.SecureCompare([]byte("abc"), []byte("ab")))
	require.True(t, secure.SecureCompare(nil, nil))
}

func TestSecureRandom(t *testing.T) {
	a := make([]byte, 32)
	b := make([]byte, 32)
	require.NoError(t, secure.SecureRandom(a))
	require.NoError(t, secure.SecureRandom(b))
	require.NotEqual(t, a, b)
}
