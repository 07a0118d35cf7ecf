package storage

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tessera-id/vaultkit/keys"
	"github.com/tessera-id/vaultkit/secure"
)

// memVault is the per-identity mapping from key location to key pair.
type memVault map[keys.Location]*keys.KeyPair

// MemStoreConfig configures the in-memory backend.
type MemStoreConfig struct {
	// Logger receives debug output for mutating operations. Optional.
	Logger *logrus.Logger
}

// MemStore is the in-memory reference implementation of Storage, used for
// testing and prototyping. It keeps two independent maps, each behind its own
// lock: identifier to vault and identifier to blob. Key material is not
// protected at rest; production deployments should use a sealing backend.
type MemStore struct {
	vaultsMu sync.RWMutex
	vaults   map[keys.DID]memVault

	blobsMu sync.RWMutex
	blobs   map[keys.DID][]byte

	log *logrus.Logger
}

var _ Storage = (*MemStore)(nil)

// NewMemStore creates a new, empty MemStore.
func NewMemStore() *MemStore {
	return NewMemStoreWithConfig(MemStoreConfig{})
}

// NewMemStoreWithConfig creates a MemStore with the given configuration.
func NewMemStoreWithConfig(cfg MemStoreConfig) *MemStore {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	return &MemStore{
		vaults: make(map[keys.DID]memVault),
		blobs:  make(map[keys.DID][]byte),
		log:    log,
	}
}

// DIDCreate implements Storage. The vault write lock is held for the full
// check-then-insert sequence so two concurrent callers can never both observe
// "does not exist".
func (s *MemStore) DIDCreate(ctx context.Context, kind DIDKind, network, fragment string, privateKey []byte) (keys.DID, keys.Location, error) {
	defer secure.Zeroize(privateKey)

	if kind != DIDKindVlt {
		return keys.DID{}, keys.Location{}, errors.Wrapf(ErrInvalidInput, "unknown identifier kind %d", kind)
	}
	if err := ValidateCreateParams(network, fragment); err != nil {
		return keys.DID{}, keys.Location{}, err
	}

	// Reconstruct a key pair from the passed private key or generate a new
	// one. Ed25519 is the only signature type, so DIDCreate always uses it.
	var keyPair *keys.KeyPair
	var err error
	if privateKey != nil {
		keyPair, err = keys.FromPrivateKey(keys.Ed25519, privateKey)
		if err != nil {
			return keys.DID{}, keys.Location{}, errors.Wrap(ErrInvalidPrivateKey, err.Error())
		}
	} else {
		keyPair, err = keys.Generate(keys.Ed25519)
		if err != nil {
			return keys.DID{}, keys.Location{}, errors.Wrap(ErrBackendIO, err.Error())
		}
	}

	// The location uses the public key as an input, so it is forgeable only
	// by someone who already holds the key.
	location := keys.NewLocation(keys.Ed25519, fragment, keyPair.Public())

	did, err := keys.NewDID(keyPair.Public(), network)
	if err != nil {
		keyPair.Zeroize()
		return keys.DID{}, keys.Location{}, errors.Wrap(ErrInvalidInput, err.Error())
	}

	s.vaultsMu.Lock()
	defer s.vaultsMu.Unlock()

	// The vaults map is the index of identities stored in this instance.
	// An existing identity must not be overwritten.
	if _, ok := s.vaults[did]; ok {
		keyPair.Zeroize()
		return keys.DID{}, keys.Location{}, errors.Wrapf(ErrIdentityAlreadyExists, "%s", did)
	}

	s.vaults[did] = memVault{location: keyPair}
	s.log.WithField("did", did.String()).Debug("identity created")

	return did, location, nil
}

// DIDPurge implements Storage. Locks are taken vaults before blobs; every
// nested acquisition in this backend uses the same order.
func (s *MemStore) DIDPurge(ctx context.Context, did keys.DID) (bool, error) {
	s.vaultsMu.Lock()
	defer s.vaultsMu.Unlock()

	vault, ok := s.vaults[did]
	if !ok {
		return false, nil
	}
	for _, keyPair := range vault {
		keyPair.Zeroize()
	}
	delete(s.vaults, did)

	s.blobsMu.Lock()
	delete(s.blobs, did)
	s.blobsMu.Unlock()

	s.log.WithField("did", did.String()).Debug("identity purged")
	return true, nil
}

// DIDExists implements Storage.
func (s *MemStore) DIDExists(ctx context.Context, did keys.DID) (bool, error) {
	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	_, ok := s.vaults[did]
	return ok, nil
}

// DIDList implements Storage.
func (s *MemStore) DIDList(ctx context.Context) ([]keys.DID, error) {
	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	list := make([]keys.DID, 0, len(s.vaults))
	for did := range s.vaults {
		list = append(list, did)
	}
	return list, nil
}

// KeyGenerate implements Storage. The vault is created lazily if the identity
// was never registered; see the Storage docs for why this stays permissive.
func (s *MemStore) KeyGenerate(ctx context.Context, did keys.DID, keyType keys.KeyType, fragment string) (keys.Location, error) {
	if err := ValidateFragment(fragment); err != nil {
		return keys.Location{}, err
	}

	keyPair, err := keys.Generate(keyType)
	if err != nil {
		return keys.Location{}, errors.Wrap(ErrInvalidInput, err.Error())
	}
	location := keys.NewLocation(keyType, fragment, keyPair.Public())

	s.vaultsMu.Lock()
	defer s.vaultsMu.Unlock()

	vault, ok := s.vaults[did]
	if !ok {
		vault = make(memVault)
		s.vaults[did] = vault
	}
	vault[location] = keyPair

	return location, nil
}

// KeyInsert implements Storage. The caller-supplied private key buffer is
// zeroed in place after the key pair is reconstructed, on both success and
// failure paths.
func (s *MemStore) KeyInsert(ctx context.Context, did keys.DID, location keys.Location, privateKey []byte) error {
	defer secure.Zeroize(privateKey)

	keyPair, err := keys.FromPrivateKey(location.KeyType, privateKey)
	if err != nil {
		return errors.Wrap(ErrInvalidPrivateKey, err.Error())
	}

	s.vaultsMu.Lock()
	defer s.vaultsMu.Unlock()

	vault, ok := s.vaults[did]
	if !ok {
		vault = make(memVault)
		s.vaults[did] = vault
	}
	if previous, ok := vault[location]; ok {
		previous.Zeroize()
	}
	vault[location] = keyPair

	return nil
}

// KeyExists implements Storage.
func (s *MemStore) KeyExists(ctx context.Context, did keys.DID, location keys.Location) (bool, error) {
	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	vault, ok := s.vaults[did]
	if !ok {
		return false, nil
	}
	_, ok = vault[location]
	return ok, nil
}

// KeyPublic implements Storage.
func (s *MemStore) KeyPublic(ctx context.Context, did keys.DID, location keys.Location) ([]byte, error) {
	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	keyPair, err := s.lookupLocked(did, location)
	if err != nil {
		return nil, err
	}
	return keyPair.Public(), nil
}

// KeyDelete implements Storage.
func (s *MemStore) KeyDelete(ctx context.Context, did keys.DID, location keys.Location) (bool, error) {
	s.vaultsMu.Lock()
	defer s.vaultsMu.Unlock()

	vault, ok := s.vaults[did]
	if !ok {
		return false, errors.Wrapf(ErrVaultNotFound, "%s", did)
	}
	keyPair, ok := vault[location]
	if !ok {
		return false, nil
	}
	keyPair.Zeroize()
	delete(vault, location)
	return true, nil
}

// KeySign implements Storage.
func (s *MemStore) KeySign(ctx context.Context, did keys.DID, location keys.Location, message []byte) ([]byte, error) {
	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	keyPair, err := s.lookupLocked(did, location)
	if err != nil {
		return nil, err
	}
	if !location.KeyType.CanSign() {
		return nil, errors.Wrapf(ErrUnsupportedOperation, "cannot sign with %s key", location.KeyType)
	}

	signature, err := keyPair.Sign(message)
	if err != nil {
		return nil, errors.Wrap(ErrUnsupportedOperation, err.Error())
	}
	return signature, nil
}

// DataEncrypt implements Storage. Encryption only needs the recipient's
// public key and fresh ephemeral material, so no vault state is read.
func (s *MemStore) DataEncrypt(ctx context.Context, did keys.DID, plaintext, associatedData []byte, encAlg EncryptionAlgorithm, cekAlg CekAlgorithm, publicKey []byte) (*EncryptedData, error) {
	return EncryptData(plaintext, associatedData, encAlg, cekAlg, publicKey)
}

// DataDecrypt implements Storage.
func (s *MemStore) DataDecrypt(ctx context.Context, did keys.DID, data *EncryptedData, encAlg EncryptionAlgorithm, cekAlg CekAlgorithm, privateKey keys.Location) ([]byte, error) {
	if data == nil {
		return nil, errors.Wrap(ErrInvalidInput, "encrypted data is nil")
	}

	s.vaultsMu.RLock()
	defer s.vaultsMu.RUnlock()

	keyPair, err := s.lookupLocked(did, privateKey)
	if err != nil {
		return nil, err
	}
	return DecryptData(data, encAlg, cekAlg, keyPair)
}

// BlobSet implements Storage.
func (s *MemStore) BlobSet(ctx context.Context, did keys.DID, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.blobsMu.Lock()
	defer s.blobsMu.Unlock()

	s.blobs[did] = stored
	return nil
}

// BlobGet implements Storage.
func (s *MemStore) BlobGet(ctx context.Context, did keys.DID) ([]byte, bool, error) {
	s.blobsMu.RLock()
	defer s.blobsMu.RUnlock()

	stored, ok := s.blobs[did]
	if !ok {
		return nil, false, nil
	}
	value := make([]byte, len(stored))
	copy(value, stored)
	return value, true, nil
}

// Flush implements Storage. The MemStore has no persistent medium to flush.
func (s *MemStore) Flush(ctx context.Context) error {
	return nil
}

// lookupLocked resolves a key pair; the caller must hold vaultsMu.
func (s *MemStore) lookupLocked(did keys.DID, location keys.Location) (*keys.KeyPair, error) {
	vault, ok := s.vaults[did]
	if !ok {
		return nil, errors.Wrapf(ErrVaultNotFound, "%s", did)
	}
	keyPair, ok := vault[location]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "%s", location)
	}
	return keyPair, nil
}
