package keys

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// keyHashLength is the number of fingerprint bytes kept from the blake3 sum.
const keyHashLength = 8

// Location addresses a single key within an identity's vault. It is a pure
// function of the key type, the fragment label and the public key, so two
// independent callers deriving a location for the same key always collide.
// The struct is comparable and used directly as a map key.
type Location struct {
	// KeyType is the type of the key stored at this location.
	KeyType KeyType
	// Fragment is the human-readable label for the key.
	Fragment string
	// KeyHash is a short hex-encoded blake3 fingerprint of the public key.
	KeyHash string
}

// NewLocation derives the location for a key from its type, fragment and raw
// public key bytes.
func NewLocation(keyType KeyType, fragment string, public []byte) Location {
	sum := blake3.Sum256(public)
	return Location{
		KeyType:  keyType,
		Fragment: fragment,
		KeyHash:  hex.EncodeToString(sum[:keyHashLength]),
	}
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%s:%s", l.KeyType, l.Fragment, l.KeyHash)
}
