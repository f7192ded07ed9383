package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// RandIntn returns a uniform random value in [0, n). It panics if got a
// non-positive parameter.
func RandIntn(n int) int {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}

	return int(r.Int64())
}

// RandBytes returns n cryptographically random bytes.
func RandBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}

	return b
}

// ExpandSeed derives the counter-th 256-bit value of the stream keyed by
// seed. The expansion is keccak256(seed || counter), the same construction
// VRF consumers use to stretch a single oracle output into many words.
func ExpandSeed(seed []byte, counter uint64) *big.Int {
	var suffix [8]byte
	binary.BigEndian.PutUint64(suffix[:], counter)
	return new(big.Int).SetBytes(ethcrypto.Keccak256(seed, suffix[:]))
}
