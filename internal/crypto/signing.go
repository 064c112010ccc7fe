package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
)

// NewSigningKey generates an ed25519 keypair for the daemon's session
// token signer. Generated per process: tokens do not survive a restart,
// matching the in-memory session model.
func NewSigningKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	return priv, err
}
