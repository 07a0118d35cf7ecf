package keys

import (
	"strings"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"
	"github.com/multiformats/go-varint"
	"github.com/pkg/errors"
)

// Method is the DID method name used by identifiers in this module.
const Method = "vlt"

const maxNetworkLength = 6

// DID is a stable identity handle derived from a public key and a network
// tag. It is comparable and safe to use as a map key. Identifiers are
// immutable once created.
type DID struct {
	network string
	tag     string
}

// NewDID derives an identifier from raw public key bytes and a network name.
// The tag is the base58 encoding of the blake2b-256 multihash of the public
// key, so the same key on the same network always yields the same identifier.
func NewDID(public []byte, network string) (DID, error) {
	if len(public) != PublicKeyLength {
		return DID{}, errors.Errorf("expected public key of length %d, got %d", PublicKeyLength, len(public))
	}
	if err := ValidateNetworkName(network); err != nil {
		return DID{}, err
	}
	digest, err := multihash.Sum(public, multihash.BLAKE2B_MIN+31, -1)
	if err != nil {
		return DID{}, errors.Wrap(err, "hashing public key")
	}
	return DID{network: network, tag: base58.Encode(digest)}, nil
}

// ParseDID parses the string form produced by DID.String.
func ParseDID(s string) (DID, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != "did" || parts[1] != Method {
		return DID{}, errors.Errorf("malformed identifier: %q", s)
	}
	if err := ValidateNetworkName(parts[2]); err != nil {
		return DID{}, err
	}
	raw, err := base58.Decode(parts[3])
	if err != nil {
		return DID{}, errors.Wrap(err, "decoding identifier tag")
	}
	code, _, err := varint.FromUvarint(raw)
	if err != nil {
		return DID{}, errors.Wrap(err, "decoding multihash code")
	}
	if code != multihash.BLAKE2B_MIN+31 {
		return DID{}, errors.Errorf("unexpected multihash code: %#x", code)
	}
	decoded, err := multihash.Decode(raw)
	if err != nil {
		return DID{}, errors.Wrap(err, "decoding identifier multihash")
	}
	if decoded.Length != 32 {
		return DID{}, errors.Errorf("unexpected digest length: %d", decoded.Length)
	}
	return DID{network: parts[2], tag: parts[3]}, nil
}

// ValidateNetworkName checks the network tag: non-empty, at most six
// characters, lowercase letters and digits only.
func ValidateNetworkName(network string) error {
	if network == "" || len(network) > maxNetworkLength {
		return errors.Errorf("network name must be 1-%d characters, got %d", maxNetworkLength, len(network))
	}
	for _, r := range network {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return errors.Errorf("network name contains invalid character %q", r)
		}
	}
	return nil
}

// Network returns the network portion of the identifier.
func (d DID) Network() string {
	return d.network
}

// Tag returns the key-derived portion of the identifier.
func (d DID) Tag() string {
	return d.tag
}

// IsZero reports whether the identifier is the zero value.
func (d DID) IsZero() bool {
	return d.network == "" && d.tag == ""
}

// String formats the identifier as did:vlt:<network>:<tag>.
func (d DID) String() string {
	return "did:" + Method + ":" + d.network + ":" + d.tag
}
