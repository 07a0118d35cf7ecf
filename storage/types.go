package storage

import (
	"fmt"

	"github.com/tessera-id/vaultkit/aead"
	"github.com/tessera-id/vaultkit/kdf"
)

// DIDKind selects the identifier scheme used by DIDCreate.
type DIDKind uint8

const (
	// DIDKindVlt is the did:vlt key-derived identifier scheme.
	DIDKindVlt DIDKind = iota
)

// EncryptionAlgorithm identifies the AEAD cipher used for content encryption.
type EncryptionAlgorithm uint8

const (
	// AES256GCM is AES-256 in Galois/Counter Mode with a 96-bit nonce and a
	// 128-bit authentication tag.
	AES256GCM EncryptionAlgorithm = iota
)

// KeyLength returns the content-encryption key length in bytes.
func (a EncryptionAlgorithm) KeyLength() int {
	switch a {
	case AES256GCM:
		return aead.KeySize
	default:
		panic(fmt.Sprintf("storage: unknown encryption algorithm %d", a))
	}
}

func (a EncryptionAlgorithm) String() string {
	switch a {
	case AES256GCM:
		return "A256GCM"
	default:
		return fmt.Sprintf("encryptionalgorithm(%d)", uint8(a))
	}
}

type cekKind uint8

const (
	cekECDHES cekKind = iota
	cekECDHESA256KW
)

// CekAlgorithm determines how the content-encryption key for a message is
// obtained. It is a tagged variant with two cases, each carrying its own
// agreement context: direct ECDH-ES, where the agreement-derived secret is
// the content-encryption key itself, and ECDH-ES+A256KW, where a fresh random
// key is wrapped under the agreement-derived secret with AES key wrap.
type CekAlgorithm struct {
	kind      cekKind
	agreement kdf.AgreementInfo
}

// ECDHES builds the direct key-agreement variant.
func ECDHES(agreement kdf.AgreementInfo) CekAlgorithm {
	return CekAlgorithm{kind: cekECDHES, agreement: agreement}
}

// ECDHESA256KW builds the key-agreement-with-key-wrap variant.
func ECDHESA256KW(agreement kdf.AgreementInfo) CekAlgorithm {
	return CekAlgorithm{kind: cekECDHESA256KW, agreement: agreement}
}

// Agreement returns the agreement context bytes for this algorithm.
func (c CekAlgorithm) Agreement() kdf.AgreementInfo {
	return c.agreement
}

// Name returns the textual algorithm identifier bound into the Concat KDF.
func (c CekAlgorithm) Name() string {
	switch c.kind {
	case cekECDHES:
		return "ECDH-ES"
	case cekECDHESA256KW:
		return "ECDH-ES+A256KW"
	default:
		panic(fmt.Sprintf("storage: unknown cek algorithm %d", c.kind))
	}
}

// EncryptedData is the self-contained result of one encryption operation:
// decryption needs only this envelope, the algorithm identifiers and the
// recipient's static private key.
type EncryptedData struct {
	Nonce              []byte `json:"nonce"`
	AssociatedData     []byte `json:"associatedData"`
	Tag                []byte `json:"tag"`
	Ciphertext         []byte `json:"ciphertext"`
	EncryptedCEK       []byte `json:"encryptedCEK"`
	EphemeralPublicKey []byte `json:"ephemeralPublicKey"`
}
