package storage

import (
	"crypto/aes"

	aeskw "github.com/NickBall/go-aes-key-wrap"
	"github.com/pkg/errors"

	"github.com/tessera-id/vaultkit/aead"
	"github.com/tessera-id/vaultkit/kdf"
	"github.com/tessera-id/vaultkit/keys"
	"github.com/tessera-id/vaultkit/secure"
)

// kwBlockSize is the AES key wrap semiblock size: wrapping adds exactly one
// block of overhead, unwrapping removes it.
const kwBlockSize = 8

// EncryptData is the stateless encryption engine shared by backends. It
// generates a fresh ephemeral X25519 key pair, derives the key-agreement
// secret with the recipient's static public key, runs it through the Concat
// KDF bound to the algorithm name, and either uses the derived secret as the
// content-encryption key directly (ECDH-ES) or wraps a fresh random one with
// AES key wrap (ECDH-ES+A256KW) before sealing the plaintext with the AEAD.
func EncryptData(plaintext, associatedData []byte, encAlg EncryptionAlgorithm, cekAlg CekAlgorithm, recipientPublic []byte) (*EncryptedData, error) {
	if len(recipientPublic) != keys.PublicKeyLength {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "expected public key of length %d, got %d", keys.PublicKeyLength, len(recipientPublic))
	}

	ephemeral, err := keys.Generate(keys.X25519)
	if err != nil {
		return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
	}
	defer ephemeral.Zeroize()

	sharedSecret, err := ephemeral.SharedSecret(recipientPublic)
	if err != nil {
		return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
	}
	defer secure.Zeroize(sharedSecret)

	switch cekAlg.kind {
	case cekECDHES:
		derivedSecret, err := kdf.ConcatKDF(cekAlg.Name(), encAlg.KeyLength(), sharedSecret, cekAlg.agreement)
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}
		defer secure.Zeroize(derivedSecret)

		return sealWithKey(derivedSecret, encAlg, plaintext, associatedData, nil, ephemeral.Public())

	case cekECDHESA256KW:
		derivedSecret, err := kdf.ConcatKDF(cekAlg.Name(), aead.KeySize, sharedSecret, cekAlg.agreement)
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}
		defer secure.Zeroize(derivedSecret)

		cek := make([]byte, encAlg.KeyLength())
		if err := secure.SecureRandom(cek); err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}
		defer secure.Zeroize(cek)

		block, err := aes.NewCipher(derivedSecret)
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}
		// Output is cek length plus one key wrap block of overhead.
		encryptedCEK, err := aeskw.Wrap(block, cek)
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}

		return sealWithKey(cek, encAlg, plaintext, associatedData, encryptedCEK, ephemeral.Public())

	default:
		return nil, errors.Wrapf(ErrEncryptionFailure, "unknown cek algorithm %d", cekAlg.kind)
	}
}

// DecryptData reverses EncryptData using the recipient's static agreement
// key pair and the ephemeral public key carried in the envelope.
func DecryptData(data *EncryptedData, encAlg EncryptionAlgorithm, cekAlg CekAlgorithm, keyPair *keys.KeyPair) ([]byte, error) {
	if !keyPair.Type().CanAgree() {
		return nil, errors.Wrapf(ErrInvalidPrivateKey, "%s keys are not supported for decryption", keyPair.Type())
	}
	if len(data.EphemeralPublicKey) != keys.PublicKeyLength {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "expected public key of length %d, got %d", keys.PublicKeyLength, len(data.EphemeralPublicKey))
	}

	sharedSecret, err := keyPair.SharedSecret(data.EphemeralPublicKey)
	if err != nil {
		return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
	}
	defer secure.Zeroize(sharedSecret)

	switch cekAlg.kind {
	case cekECDHES:
		derivedSecret, err := kdf.ConcatKDF(cekAlg.Name(), encAlg.KeyLength(), sharedSecret, cekAlg.agreement)
		if err != nil {
			return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
		}
		defer secure.Zeroize(derivedSecret)

		return openWithKey(derivedSecret, encAlg, data)

	case cekECDHESA256KW:
		derivedSecret, err := kdf.ConcatKDF(cekAlg.Name(), aead.KeySize, sharedSecret, cekAlg.agreement)
		if err != nil {
			return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
		}
		defer secure.Zeroize(derivedSecret)

		if len(data.EncryptedCEK) < kwBlockSize {
			return nil, errors.Wrapf(ErrDecryptionFailure, "wrapped key needs at least %d bytes, has %d", kwBlockSize, len(data.EncryptedCEK))
		}

		block, err := aes.NewCipher(derivedSecret)
		if err != nil {
			return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
		}
		cek, err := aeskw.Unwrap(block, data.EncryptedCEK)
		if err != nil {
			return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
		}
		defer secure.Zeroize(cek)

		return openWithKey(cek, encAlg, data)

	default:
		return nil, errors.Wrapf(ErrDecryptionFailure, "unknown cek algorithm %d", cekAlg.kind)
	}
}

func sealWithKey(key []byte, encAlg EncryptionAlgorithm, plaintext, associatedData, encryptedCEK, ephemeralPublicKey []byte) (*EncryptedData, error) {
	switch encAlg {
	case AES256GCM:
		cipher, err := aead.NewAESGCM(key)
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}
		nonce, err := aead.RandomNonce()
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}

		// Padding is added only on encrypt and is implicit in the ciphertext
		// length; decrypt strips it back via the authenticated length.
		padded := plaintext
		if pad := aead.PadSize(len(plaintext)); pad > 0 {
			padded = make([]byte, len(plaintext)+pad)
			copy(padded, plaintext)
		}

		ciphertext, tag, err := cipher.SealDetached(nonce, padded, associatedData)
		if err != nil {
			return nil, errors.Wrap(ErrEncryptionFailure, err.Error())
		}

		return &EncryptedData{
			Nonce:              nonce,
			AssociatedData:     associatedData,
			Tag:                tag,
			Ciphertext:         ciphertext,
			EncryptedCEK:       encryptedCEK,
			EphemeralPublicKey: ephemeralPublicKey,
		}, nil

	default:
		return nil, errors.Wrapf(ErrEncryptionFailure, "unknown encryption algorithm %d", encAlg)
	}
}

func openWithKey(key []byte, encAlg EncryptionAlgorithm, data *EncryptedData) ([]byte, error) {
	switch encAlg {
	case AES256GCM:
		cipher, err := aead.NewAESGCM(key)
		if err != nil {
			return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
		}
		plaintext, err := cipher.OpenDetached(data.Nonce, data.Ciphertext, data.Tag, data.AssociatedData)
		if err != nil {
			return nil, errors.Wrap(ErrDecryptionFailure, err.Error())
		}
		return plaintext, nil

	default:
		return nil, errors.Wrapf(ErrDecryptionFailure, "unknown encryption algorithm %d", encAlg)
	}
}
