package kdf

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// ConcatKDF derives length bytes of key material from a shared secret using
// the single-round-counter Concat KDF over SHA-256. Each round hashes, in
// order: the big-endian 32-bit round counter (1-indexed), the raw shared
// secret, the 32-bit length-prefixed algorithm identifier, the
// length-prefixed PartyUInfo and PartyVInfo, then the unprefixed supplemental
// public and private info. The algorithm identifier must name the
// key-agreement/encryption pairing so that reusing a shared secret across two
// algorithms yields different keys.
func ConcatKDF(alg string, length int, sharedSecret []byte, agreement AgreementInfo) ([]byte, error) {
	if length <= 0 {
		return nil, errors.Errorf("invalid derived key length: %d", length)
	}

	rounds := (length + sha256.Size - 1) / sha256.Size
	if uint64(rounds) > math.MaxUint32 {
		return nil, errors.New("iterations can't exceed 2^32 - 1")
	}

	output := make([]byte, 0, rounds*sha256.Size)
	var counter [4]byte
	var lenPrefix [4]byte

	for round := 1; round <= rounds; round++ {
		digest := sha256.New()

		// Iteration count
		binary.BigEndian.PutUint32(counter[:], uint32(round))
		digest.Write(counter[:])

		// Shared secret
		digest.Write(sharedSecret)

		// AlgorithmID
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(alg)))
		digest.Write(lenPrefix[:])
		digest.Write([]byte(alg))

		// PartyUInfo
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(agreement.APU)))
		digest.Write(lenPrefix[:])
		digest.Write(agreement.APU)

		// PartyVInfo
		binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(agreement.APV)))
		digest.Write(lenPrefix[:])
		digest.Write(agreement.APV)

		// SuppPubInfo
		digest.Write(agreement.PubInfo)

		// SuppPrivInfo
		digest.Write(agreement.PrivInfo)

		output = digest.Sum(output)
	}

	return output[:length], nil
}
