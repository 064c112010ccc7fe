package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// KDFIterations is the PBKDF2 iteration count for every derived key.
// Stored rows carry no KDF descriptor, so the count is a constant of the
// format, not configuration.
const KDFIterations = 600_000

// SaltSize is the per-entity salt length. Two entities never share a
// salt.
const SaltSize = 32

// DeriveKey stretches password+salt into a key handle with
// PBKDF2-HMAC-SHA256. A call costs hundreds of milliseconds; that cost
// is the brute-force defense.
func DeriveKey(password string, salt []byte) *Key {
	raw := pbkdf2.Key([]byte(password), salt, KDFIterations, KeySize, sha256.New)
	k := new(Key)
	copy(k[:], raw)
	Zero(raw)
	return k
}
