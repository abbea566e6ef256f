package article

import (
	"crypto/sha256"
	"encoding/hex"
	"hash/fnv"
	"math/bits"
	"strings"
)

// ContentHash returns the exact-duplicate key for a normalized text: the hex
// sha256 digest. Texts identical after NormalizeText always collide here.
func ContentHash(normalized string) string {
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:])
}

// Simhash computes a 64-bit similarity fingerprint over the normalized text.
// Each token votes its FNV-1a hash bits into a 64-wide tally (repeated tokens
// vote once per occurrence); the fingerprint takes the majority sign per bit.
// Near-identical texts land within a small Hamming distance of each other.
func Simhash(normalized string) uint64 {
	var tally [64]int

	for _, token := range strings.Fields(normalized) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		for i := 0; i < 64; i++ {
			if sum>>uint(i)&1 == 1 {
				tally[i]++
			} else {
				tally[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if tally[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}

	return fingerprint
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
