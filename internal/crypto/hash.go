package crypto

import "crypto/sha256"

// HashSize is the digest length of Hash.
const HashSize = sha256.Size

// Hash returns the SHA-256 digest of data. Pure and deterministic, no
// secret state.
func Hash(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}
