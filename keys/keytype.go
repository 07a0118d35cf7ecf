// Package keys provides the key material primitives of the vault layer:
// supported key types, key pair generation and reconstruction, network-scoped
// decentralized identifiers derived from public keys, and deterministic key
// locations addressing a single key within an identity's vault.
package keys

import "fmt"

// KeyType identifies a supported key algorithm. The type encodes usage
// capability, not just the curve: Ed25519 keys sign, X25519 keys agree.
type KeyType uint8

const (
	// Ed25519 is the signature-capable key type.
	Ed25519 KeyType = iota
	// X25519 is the key-agreement-capable key type.
	X25519
)

const (
	// PrivateKeyLength is the raw private key length shared by both key types.
	PrivateKeyLength = 32
	// PublicKeyLength is the raw public key length shared by both key types.
	PublicKeyLength = 32
)

const (
	// MulticodecEd25519Pub is the ed25519-pub multicodec.
	MulticodecEd25519Pub = 0xed
	// MulticodecX25519Pub is the x25519-pub multicodec.
	MulticodecX25519Pub = 0xec
)

// CanSign reports whether the key type supports signing.
func (t KeyType) CanSign() bool {
	return t == Ed25519
}

// CanAgree reports whether the key type supports Diffie-Hellman key agreement.
func (t KeyType) CanAgree() bool {
	return t == X25519
}

// Multicodec returns the multicodec code for public keys of this type.
func (t KeyType) Multicodec() uint64 {
	switch t {
	case Ed25519:
		return MulticodecEd25519Pub
	case X25519:
		return MulticodecX25519Pub
	default:
		panic(fmt.Sprintf("keys: unknown key type %d", t))
	}
}

func (t KeyType) String() string {
	switch t {
	case Ed25519:
		return "ed25519"
	case X25519:
		return "x25519"
	default:
		return fmt.Sprintf("keytype(%d)", uint8(t))
	}
}
