package crypto

import "crypto/rand"

// RandomBytes returns n bytes from the OS entropy source. There is no
// fallback to a deterministic generator.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// NewNonce returns a fresh 96-bit nonce. Nonces are generated per
// operation and never reused under the same key.
func NewNonce() ([]byte, error) {
	return RandomBytes(NonceSize)
}
