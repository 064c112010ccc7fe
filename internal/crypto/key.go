package crypto

import "errors"

// KeySize is the length of every symmetric key in the hierarchy (256-bit
// AEAD keys).
const KeySize = 32

// ErrKeySize is returned when raw key material has the wrong length.
var ErrKeySize = errors.New("crypto: key must be 32 bytes")

// Key is an opaque symmetric key handle. Key material is copied in once
// and only ever leaves through the AEAD operations; callers zero the
// handle when the key's lifetime ends.
type Key [KeySize]byte

// NewKey copies b into a fresh handle. The caller keeps ownership of b
// and should zero it afterwards.
func NewKey(b []byte) (*Key, error) {
	if len(b) != KeySize {
		return nil, ErrKeySize
	}
	k := new(Key)
	copy(k[:], b)
	return k, nil
}

// NewRandomKey fills a fresh handle from the secure entropy source.
func NewRandomKey() (*Key, error) {
	b, err := RandomBytes(KeySize)
	if err != nil {
		return nil, err
	}
	k := new(Key)
	copy(k[:], b)
	Zero(b)
	return k, nil
}

// Zero overwrites the key material. Safe to call on a nil handle and
// safe to call more than once.
func (k *Key) Zero() {
	if k == nil {
		return
	}
	for i := range k {
		k[i] = 0
	}
}
