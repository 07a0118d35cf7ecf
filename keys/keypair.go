package keys

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"golang.org/x/crypto/curve25519"

	"github.com/tessera-id/vaultkit/secure"
)

// KeyPair holds a public/private key of a supported type. The private half is
// sensitive; call Zeroize when the pair is no longer needed.
type KeyPair struct {
	keyType KeyType
	public  []byte
	private []byte
}

// Generate creates a fresh key pair of the given type.
func Generate(keyType KeyType) (*KeyPair, error) {
	private := make([]byte, PrivateKeyLength)
	if err := secure.SecureRandom(private); err != nil {
		return nil, errors.Wrap(err, "generating private key")
	}
	kp, err := fromPrivate(keyType, private)
	if err != nil {
		secure.Zeroize(private)
		return nil, err
	}
	return kp, nil
}

// FromPrivateKey reconstructs a key pair from raw private key bytes. The
// input is copied; the caller keeps ownership of (and responsibility for
// wiping) its buffer.
func FromPrivateKey(keyType KeyType, private []byte) (*KeyPair, error) {
	if len(private) != PrivateKeyLength {
		return nil, errors.Errorf("expected private key of length %d, got %d", PrivateKeyLength, len(private))
	}
	buf := make([]byte, PrivateKeyLength)
	copy(buf, private)
	kp, err := fromPrivate(keyType, buf)
	if err != nil {
		secure.Zeroize(buf)
		return nil, err
	}
	return kp, nil
}

// fromPrivate takes ownership of the private buffer.
func fromPrivate(keyType KeyType, private []byte) (*KeyPair, error) {
	var public []byte
	switch keyType {
	case Ed25519:
		pub := ed25519.NewKeyFromSeed(private).Public().(ed25519.PublicKey)
		public = []byte(pub)
	case X25519:
		pub, err := curve25519.X25519(private, curve25519.Basepoint)
		if err != nil {
			return nil, errors.Wrap(err, "deriving x25519 public key")
		}
		public = pub
	default:
		return nil, errors.Errorf("unsupported key type: %s", keyType)
	}
	return &KeyPair{keyType: keyType, public: public, private: private}, nil
}

// Type returns the key type of the pair.
func (k *KeyPair) Type() KeyType {
	return k.keyType
}

// Public returns a copy of the raw public key bytes.
func (k *KeyPair) Public() []byte {
	out := make([]byte, len(k.public))
	copy(out, k.public)
	return out
}

// Private returns a copy of the raw private key bytes. The caller must wipe
// the returned buffer once it is no longer needed.
func (k *KeyPair) Private() []byte {
	out := make([]byte, len(k.private))
	copy(out, k.private)
	return out
}

// Sign signs the message with an Ed25519 private key.
func (k *KeyPair) Sign(message []byte) ([]byte, error) {
	if k.keyType != Ed25519 {
		return nil, errors.Errorf("key type %s cannot sign", k.keyType)
	}
	priv := ed25519.NewKeyFromSeed(k.private)
	defer secure.Zeroize(priv)
	return ed25519.Sign(priv, message), nil
}

// SharedSecret performs an X25519 exchange between this pair's private key
// and the peer's public key. The caller must wipe the returned secret.
func (k *KeyPair) SharedSecret(peerPublic []byte) ([]byte, error) {
	if k.keyType != X25519 {
		return nil, errors.Errorf("key type %s cannot perform key agreement", k.keyType)
	}
	if len(peerPublic) != PublicKeyLength {
		return nil, errors.Errorf("expected public key of length %d, got %d", PublicKeyLength, len(peerPublic))
	}
	secret, err := curve25519.X25519(k.private, peerPublic)
	if err != nil {
		return nil, errors.Wrap(err, "x25519 key exchange")
	}
	return secret, nil
}

// Zeroize wipes the private key material in place.
func (k *KeyPair) Zeroize() {
	secure.Zeroize(k.private)
}
