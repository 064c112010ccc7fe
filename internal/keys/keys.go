// Package keys builds the identifier and key hierarchy: a deterministic
// workspace id from the password, per-entity derived keys, random ids
// for folders and files, and one-time file content keys.
package keys

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
)

// WorkspaceID derives the workspace identifier from the password alone:
// hex(SHA-256(SHA-256(password))). It has to be computable before any
// salt is known, because salts are stored keyed by this id. The double
// hash blunts length-extension tricks on the outer digest; it adds no
// per-guess cost. Brute-force resistance lives entirely in DeriveKey's
// iteration count.
func WorkspaceID(password string) string {
	return hex.EncodeToString(crypto.Hash(crypto.Hash([]byte(password))))
}

// DeriveWorkspaceKey stretches the workspace password with the workspace
// salt.
func DeriveWorkspaceKey(password string, salt []byte) *crypto.Key {
	return crypto.DeriveKey(password, salt)
}

// DeriveFolderKey stretches a folder password with that folder's salt.
// Same primitive as DeriveWorkspaceKey; the two keys are never
// interchangeable because their salts are generated independently.
func DeriveFolderKey(password string, salt []byte) *crypto.Key {
	return crypto.DeriveKey(password, salt)
}

// NewSalt returns a fresh per-entity salt.
func NewSalt() ([]byte, error) {
	return crypto.RandomBytes(crypto.SaltSize)
}

// NewEntityID returns a random identifier for folders and files. Unlike
// the workspace id it cannot be recomputed from a password; callers
// learn it by listing the parent.
func NewEntityID() string {
	return uuid.NewString()
}

// NewFileKey returns a one-time content key. Generated at upload,
// wrapped under the folder key, and zeroed as soon as wrapping succeeds.
func NewFileKey() (*crypto.Key, error) {
	return crypto.NewRandomKey()
}
