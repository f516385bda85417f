package voiceprint

import (
	"encoding/hex"
	"math"
	"math/rand/v2"
	"strconv"

	"golang.org/x/crypto/blake2b"
)

// ContentHash is the hex BLAKE2b-256 digest of the raw sample bytes.
func ContentHash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fallback derives dims pseudo-random values in [-1, 1] from a content hash.
// The same hash always yields the same vector.
func Fallback(hash string, dims int) []float64 {
	seed := hashSeed(hash)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]float64, dims)
	for i := range out {
		out[i] = round6(rng.Float64()*2 - 1)
	}
	return out
}

// hashSeed interprets the first 8 hex characters of hash as an integer.
func hashSeed(hash string) uint64 {
	if len(hash) > 8 {
		hash = hash[:8]
	}
	seed, err := strconv.ParseUint(hash, 16, 64)
	if err != nil {
		return 0
	}
	return seed
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
