package argon2_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/argon2"
	"github.com/tessera-id/vaultkit/salt"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	cfg := argon2.LightConfig()
	s, err := salt.Generate(salt.DefaultSize)
	require.NoError(t, err)

	first := cfg.DeriveKey([]byte("correct horse battery staple"), s)
	second := cfg.DeriveKey([]byte("correct horse battery staple"), s)
	require.Equal(t, first, second)
	require.Len(t, first, int(cfg.KeyLength))
}

func TestDeriveKeySaltAndPassphraseMatter(t *testing.T) {
	cfg := argon2.LightConfig()
	s1, err := salt.Generate(salt.DefaultSize)
	require.NoError(t, err)
	s2, err := salt.Generate(salt.DefaultSize)
	require.NoError(t, err)

	base := cfg.DeriveKey([]byte("passphrase"), s1)
	require.NotEqual(t, base, cfg.DeriveKey([]byte("passphrase"), s2))
	require.NotEqual(t, base, cfg.DeriveKey([]byte("other"), s1))
}

func TestDefaultConfig(t *testing.T) {
	cfg := argon2.DefaultConfig()
	require.NotZero(t, cfg.Time)
	require.NotZero(t, cfg.Memory)
	require.NotZero(t, cfg.Parallelism)
	require.Equal(t, uint32(32), cfg.KeyLength)
}
