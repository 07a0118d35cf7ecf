// Package badgerstore provides a persistent Storage backend on top of
// Badger. Every stored record (key pairs, blobs, identity markers) is sealed
// with AES-256-GCM under a key derived from the configured passphrase with
// Argon2id; the derivation salt is persisted inside the database. Flush
// performs a real sync to the underlying value log.
package badgerstore

import (
	"context"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/tessera-id/vaultkit/aead"
	"github.com/tessera-id/vaultkit/argon2"
	"github.com/tessera-id/vaultkit/keys"
	"github.com/tessera-id/vaultkit/salt"
	"github.com/tessera-id/vaultkit/secure"
	"github.com/tessera-id/vaultkit/storage"
)

const (
	saltRecordKey = "!vaultkit!salt"

	markerPrefix = "d|"
	vaultPrefix  = "v|"
	blobPrefix   = "b|"
)

// Config configures the persistent backend.
type Config struct {
	// Path is the Badger directory. Empty runs Badger fully in memory,
	// which is useful for tests.
	Path string
	// Passphrase protects all records at rest.
	Passphrase []byte
	// KDF overrides the Argon2id parameters. Defaults to argon2.DefaultConfig.
	KDF *argon2.Config
	// Logger receives debug output for mutating operations. Optional.
	Logger *logrus.Logger
}

// Store is a Badger-backed implementation of storage.Storage.
type Store struct {
	db       *badger.DB
	cipher   *aead.AESGCMCipher
	log      *logrus.Logger
	inMemory bool

	// createMu serializes the check-then-insert sequence of DIDCreate.
	createMu sync.Mutex
}

var _ storage.Storage = (*Store)(nil)

// Open opens or creates a store at the configured path and derives the
// sealing key from the passphrase. Opening an existing store with the wrong
// passphrase succeeds, but every subsequent unseal fails.
func Open(cfg Config) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.WarnLevel)
	}
	kdfConfig := cfg.KDF
	if kdfConfig == nil {
		kdfConfig = argon2.DefaultConfig()
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil
	inMemory := cfg.Path == ""
	if inMemory {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}

	kdfSalt, err := loadOrCreateSalt(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	sealingKey := kdfConfig.DeriveKey(cfg.Passphrase, kdfSalt)
	defer secure.Zeroize(sealingKey)

	cipher, err := aead.NewAESGCM(sealingKey)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}

	log.WithField("path", cfg.Path).Debug("badger store opened")
	return &Store{db: db, cipher: cipher, log: log, inMemory: inMemory}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return nil
}

func loadOrCreateSalt(db *badger.DB) ([]byte, error) {
	var kdfSalt []byte
	err := db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(saltRecordKey))
		if err == nil {
			kdfSalt, err = item.ValueCopy(nil)
			if err != nil {
				return err
			}
			return salt.Validate(kdfSalt)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		kdfSalt, err = salt.Generate(salt.DefaultSize)
		if err != nil {
			return err
		}
		return txn.Set([]byte(saltRecordKey), kdfSalt)
	})
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return kdfSalt, nil
}

func markerKey(did keys.DID) []byte {
	return []byte(markerPrefix + did.String())
}

func blobKey(did keys.DID) []byte {
	return []byte(blobPrefix + did.String())
}

func vaultKeyPrefix(did keys.DID) []byte {
	return []byte(vaultPrefix + did.String() + "|")
}

// entryKey encodes a location after the vault prefix: a fixed-width key type
// and fingerprint header, then the free-form fragment.
func entryKey(did keys.DID, location keys.Location) []byte {
	suffix := fmt.Sprintf("%02x%s|%s", uint8(location.KeyType), location.KeyHash, location.Fragment)
	return append(vaultKeyPrefix(did), suffix...)
}

// encodeKeyPair serializes a key pair as key type byte plus raw private key;
// the public half is re-derived on decode. The caller wipes the result.
func encodeKeyPair(keyPair *keys.KeyPair) []byte {
	private := keyPair.Private()
	record := make([]byte, 1+len(private))
	record[0] = byte(keyPair.Type())
	copy(record[1:], private)
	secure.Zeroize(private)
	return record
}

func decodeKeyPair(record []byte) (*keys.KeyPair, error) {
	if len(record) != 1+keys.PrivateKeyLength {
		return nil, errors.Wrapf(storage.ErrBackendIO, "malformed key record of length %d", len(record))
	}
	keyPair, err := keys.FromPrivateKey(keys.KeyType(record[0]), record[1:])
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return keyPair, nil
}

// seal encrypts a record, binding it to its database key via associated data.
func (s *Store) seal(plaintext, dbKey []byte) ([]byte, error) {
	sealed, err := s.cipher.Encrypt(plaintext, dbKey)
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return sealed, nil
}

func (s *Store) unseal(sealed, dbKey []byte) ([]byte, error) {
	plaintext, err := s.cipher.Decrypt(sealed, dbKey)
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return plaintext, nil
}

// getSealed reads and unseals one record. Missing keys map to notFound.
func (s *Store) getSealed(txn *badger.Txn, dbKey []byte, notFound error) ([]byte, error) {
	item, err := txn.Get(dbKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	sealed, err := item.ValueCopy(nil)
	if err != nil {
		return nil, errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return s.unseal(sealed, dbKey)
}

// ensureMarker registers the identity marker if it is not present yet. Vaults
// are created lazily on first key write, matching the reference backend.
func (s *Store) ensureMarker(txn *badger.Txn, did keys.DID) error {
	key := markerKey(did)
	_, err := txn.Get(key)
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	sealed, err := s.seal(nil, key)
	if err != nil {
		return err
	}
	return txn.Set(key, sealed)
}

func (s *Store) requireMarker(txn *badger.Txn, did keys.DID) error {
	_, err := txn.Get(markerKey(did))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return errors.Wrapf(storage.ErrVaultNotFound, "%s", did)
	}
	if err != nil {
		return errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return nil
}

// DIDCreate implements storage.Storage.
func (s *Store) DIDCreate(ctx context.Context, kind storage.DIDKind, network, fragment string, privateKey []byte) (keys.DID, keys.Location, error) {
	defer secure.Zeroize(privateKey)

	if kind != storage.DIDKindVlt {
		return keys.DID{}, keys.Location{}, errors.Wrapf(storage.ErrInvalidInput, "unknown identifier kind %d", kind)
	}
	if err := storage.ValidateCreateParams(network, fragment); err != nil {
		return keys.DID{}, keys.Location{}, err
	}

	var keyPair *keys.KeyPair
	var err error
	if privateKey != nil {
		keyPair, err = keys.FromPrivateKey(keys.Ed25519, privateKey)
		if err != nil {
			return keys.DID{}, keys.Location{}, errors.Wrap(storage.ErrInvalidPrivateKey, err.Error())
		}
	} else {
		keyPair, err = keys.Generate(keys.Ed25519)
		if err != nil {
			return keys.DID{}, keys.Location{}, errors.Wrap(storage.ErrBackendIO, err.Error())
		}
	}
	defer keyPair.Zeroize()

	location := keys.NewLocation(keys.Ed25519, fragment, keyPair.Public())
	did, err := keys.NewDID(keyPair.Public(), network)
	if err != nil {
		return keys.DID{}, keys.Location{}, errors.Wrap(storage.ErrInvalidInput, err.Error())
	}

	record := encodeKeyPair(keyPair)
	defer secure.Zeroize(record)

	s.createMu.Lock()
	defer s.createMu.Unlock()

	err = s.db.Update(func(txn *badger.Txn) error {
		key := markerKey(did)
		if _, err := txn.Get(key); err == nil {
			return errors.Wrapf(storage.ErrIdentityAlreadyExists, "%s", did)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}

		sealedMarker, err := s.seal(nil, key)
		if err != nil {
			return err
		}
		if err := txn.Set(key, sealedMarker); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}

		entry := entryKey(did, location)
		sealedEntry, err := s.seal(record, entry)
		if err != nil {
			return err
		}
		if err := txn.Set(entry, sealedEntry); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		return nil
	})
	if err != nil {
		return keys.DID{}, keys.Location{}, err
	}

	s.log.WithField("did", did.String()).Debug("identity created")
	return did, location, nil
}

// DIDPurge implements storage.Storage.
func (s *Store) DIDPurge(ctx context.Context, did keys.DID) (bool, error) {
	purged := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := markerKey(did)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		if err := txn.Delete(key); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}

		prefix := vaultKeyPrefix(did)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var entries [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			entries = append(entries, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, entry := range entries {
			if err := txn.Delete(entry); err != nil {
				return errors.Wrap(storage.ErrBackendIO, err.Error())
			}
		}

		if err := txn.Delete(blobKey(did)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		purged = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if purged {
		s.log.WithField("did", did.String()).Debug("identity purged")
	}
	return purged, nil
}

// DIDExists implements storage.Storage.
func (s *Store) DIDExists(ctx context.Context, did keys.DID) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(markerKey(did))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		exists = true
		return nil
	})
	return exists, err
}

// DIDList implements storage.Storage.
func (s *Store) DIDList(ctx context.Context) ([]keys.DID, error) {
	var list []keys.DID
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(markerPrefix)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := it.Item().KeyCopy(nil)
			did, err := keys.ParseDID(string(raw[len(prefix):]))
			if err != nil {
				return errors.Wrap(storage.ErrBackendIO, err.Error())
			}
			list = append(list, did)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// KeyGenerate implements storage.Storage. The identity marker is created
// lazily if the identity was never registered, mirroring the reference
// backend's documented permissiveness.
func (s *Store) KeyGenerate(ctx context.Context, did keys.DID, keyType keys.KeyType, fragment string) (keys.Location, error) {
	if err := storage.ValidateFragment(fragment); err != nil {
		return keys.Location{}, err
	}

	keyPair, err := keys.Generate(keyType)
	if err != nil {
		return keys.Location{}, errors.Wrap(storage.ErrInvalidInput, err.Error())
	}
	defer keyPair.Zeroize()

	location := keys.NewLocation(keyType, fragment, keyPair.Public())
	record := encodeKeyPair(keyPair)
	defer secure.Zeroize(record)

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := s.ensureMarker(txn, did); err != nil {
			return err
		}
		entry := entryKey(did, location)
		sealed, err := s.seal(record, entry)
		if err != nil {
			return err
		}
		if err := txn.Set(entry, sealed); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		return nil
	})
	if err != nil {
		return keys.Location{}, err
	}
	return location, nil
}

// KeyInsert implements storage.Storage.
func (s *Store) KeyInsert(ctx context.Context, did keys.DID, location keys.Location, privateKey []byte) error {
	defer secure.Zeroize(privateKey)

	keyPair, err := keys.FromPrivateKey(location.KeyType, privateKey)
	if err != nil {
		return errors.Wrap(storage.ErrInvalidPrivateKey, err.Error())
	}
	defer keyPair.Zeroize()

	record := encodeKeyPair(keyPair)
	defer secure.Zeroize(record)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := s.ensureMarker(txn, did); err != nil {
			return err
		}
		entry := entryKey(did, location)
		sealed, err := s.seal(record, entry)
		if err != nil {
			return err
		}
		if err := txn.Set(entry, sealed); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		return nil
	})
}

// KeyExists implements storage.Storage.
func (s *Store) KeyExists(ctx context.Context, did keys.DID, location keys.Location) (bool, error) {
	exists := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(entryKey(did, location))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		exists = true
		return nil
	})
	return exists, err
}

// KeyPublic implements storage.Storage.
func (s *Store) KeyPublic(ctx context.Context, did keys.DID, location keys.Location) ([]byte, error) {
	keyPair, err := s.loadKeyPair(did, location)
	if err != nil {
		return nil, err
	}
	defer keyPair.Zeroize()
	return keyPair.Public(), nil
}

// KeyDelete implements storage.Storage.
func (s *Store) KeyDelete(ctx context.Context, did keys.DID, location keys.Location) (bool, error) {
	deleted := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := s.requireMarker(txn, did); err != nil {
			return err
		}
		entry := entryKey(did, location)
		if _, err := txn.Get(entry); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		if err := txn.Delete(entry); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// KeySign implements storage.Storage.
func (s *Store) KeySign(ctx context.Context, did keys.DID, location keys.Location, message []byte) ([]byte, error) {
	if !location.KeyType.CanSign() {
		// Resolve the key first so missing vaults and keys keep their
		// dedicated errors.
		keyPair, err := s.loadKeyPair(did, location)
		if err != nil {
			return nil, err
		}
		keyPair.Zeroize()
		return nil, errors.Wrapf(storage.ErrUnsupportedOperation, "cannot sign with %s key", location.KeyType)
	}

	keyPair, err := s.loadKeyPair(did, location)
	if err != nil {
		return nil, err
	}
	defer keyPair.Zeroize()

	signature, err := keyPair.Sign(message)
	if err != nil {
		return nil, errors.Wrap(storage.ErrUnsupportedOperation, err.Error())
	}
	return signature, nil
}

// DataEncrypt implements storage.Storage.
func (s *Store) DataEncrypt(ctx context.Context, did keys.DID, plaintext, associatedData []byte, encAlg storage.EncryptionAlgorithm, cekAlg storage.CekAlgorithm, publicKey []byte) (*storage.EncryptedData, error) {
	return storage.EncryptData(plaintext, associatedData, encAlg, cekAlg, publicKey)
}

// DataDecrypt implements storage.Storage.
func (s *Store) DataDecrypt(ctx context.Context, did keys.DID, data *storage.EncryptedData, encAlg storage.EncryptionAlgorithm, cekAlg storage.CekAlgorithm, privateKey keys.Location) ([]byte, error) {
	if data == nil {
		return nil, errors.Wrap(storage.ErrInvalidInput, "encrypted data is nil")
	}
	keyPair, err := s.loadKeyPair(did, privateKey)
	if err != nil {
		return nil, err
	}
	defer keyPair.Zeroize()
	return storage.DecryptData(data, encAlg, cekAlg, keyPair)
}

// BlobSet implements storage.Storage.
func (s *Store) BlobSet(ctx context.Context, did keys.DID, value []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := blobKey(did)
		sealed, err := s.seal(value, key)
		if err != nil {
			return err
		}
		if err := txn.Set(key, sealed); err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		return nil
	})
}

// BlobGet implements storage.Storage.
func (s *Store) BlobGet(ctx context.Context, did keys.DID) ([]byte, bool, error) {
	var value []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		key := blobKey(did)
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		sealed, err := item.ValueCopy(nil)
		if err != nil {
			return errors.Wrap(storage.ErrBackendIO, err.Error())
		}
		value, err = s.unseal(sealed, key)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// Flush implements storage.Storage by syncing the value log to disk.
func (s *Store) Flush(ctx context.Context) error {
	if s.inMemory {
		return nil
	}
	if err := s.db.Sync(); err != nil {
		return errors.Wrap(storage.ErrBackendIO, err.Error())
	}
	return nil
}

// loadKeyPair reads and decodes the key pair at a location. The caller must
// zeroize the returned pair.
func (s *Store) loadKeyPair(did keys.DID, location keys.Location) (*keys.KeyPair, error) {
	var keyPair *keys.KeyPair
	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.requireMarker(txn, did); err != nil {
			return err
		}
		record, err := s.getSealed(txn, entryKey(did, location), errors.Wrapf(storage.ErrKeyNotFound, "%s", location))
		if err != nil {
			return err
		}
		defer secure.Zeroize(record)
		keyPair, err = decodeKeyPair(record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return keyPair, nil
}
