package salt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tessera-id/vaultkit/salt"
)

func TestGenerate(t *testing.T) {
	s, err := salt.Generate(salt.DefaultSize)
	require.NoError(t, err)
	require.Len(t, s, salt.DefaultSize)

	other, err := salt.Generate(salt.DefaultSize)
	require.NoError(t, err)
	require.NotEqual(t, s, other)
}

func TestGenerateRejectsShortSize(t *testing.T) {
	_, err := salt.Generate(salt.MinSize - 1)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	s, err := salt.Generate(salt.MinSize)
	require.NoError(t, err)
	require.NoError(t, salt.Validate(s))

	require.Error(t, salt.Validate(nil))
	require.Error(t, salt.Validate(make([]byte, salt.MinSize-1)))
}
