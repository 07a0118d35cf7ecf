package storage

import (
	z "github.com/Oudwins/zog"
	"github.com/pkg/errors"

	"github.com/tessera-id/vaultkit/keys"
)

// createParamsSchema validates the caller-supplied parts of DIDCreate and
// KeyGenerate requests before any key material is touched.
var createParamsSchema = z.Struct(z.Shape{
	"network": z.String().
		Required().
		Min(1).
		Max(6).
		TestFunc(validNetworkName, z.Message("network must be 1-6 lowercase alphanumeric characters")),
	"fragment": z.String().Required().Min(1, z.Message("fragment cannot be empty")),
})

var fragmentSchema = z.Struct(z.Shape{
	"fragment": z.String().Required().Min(1, z.Message("fragment cannot be empty")),
})

func validNetworkName(value *string, ctx z.Ctx) bool {
	return keys.ValidateNetworkName(*value) == nil
}

type createParams struct {
	Network  string
	Fragment string
}

type fragmentParams struct {
	Fragment string
}

// ValidateCreateParams checks the network and fragment of a DIDCreate
// request. Returns ErrInvalidInput on failure.
func ValidateCreateParams(network, fragment string) error {
	var validated createParams
	issues := createParamsSchema.Parse(map[string]any{
		"network":  network,
		"fragment": fragment,
	}, &validated)
	if issues != nil {
		return errors.Wrapf(ErrInvalidInput, "create parameters: %v", issues)
	}
	return nil
}

// ValidateFragment checks a key fragment label. Returns ErrInvalidInput on
// failure.
func ValidateFragment(fragment string) error {
	var validated fragmentParams
	issues := fragmentSchema.Parse(map[string]any{"fragment": fragment}, &validated)
	if issues != nil {
		return errors.Wrapf(ErrInvalidInput, "fragment: %v", issues)
	}
	return nil
}
