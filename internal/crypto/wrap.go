package crypto

import "golang.org/x/crypto/chacha20poly1305"

// WrapKey seals the subject key under the wrapping key with
// ChaCha20-Poly1305. Wrap is a distinct operation from Encrypt: its
// output is key material, which must only ever flow back through
// UnwrapKey into a handle, never into calling code as plaintext.
func WrapKey(subject, wrapping *Key) (nonce, wrapped []byte, err error) {
	aead, err := chacha20poly1305.New(wrapping[:])
	if err != nil {
		return nil, nil, err
	}
	nonce, err = NewNonce()
	if err != nil {
		return nil, nil, err
	}
	wrapped = aead.Seal(nil, nonce, subject[:], nil)
	return nonce, wrapped, nil
}

// UnwrapKey opens a wrapped key directly into a fresh handle, zeroing
// the intermediate buffer. Verification failure is *AuthenticationError.
func UnwrapKey(wrapped, nonce []byte, wrapping *Key) (*Key, error) {
	aead, err := chacha20poly1305.New(wrapping[:])
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, &AuthenticationError{Op: "unwrap"}
	}
	raw, err := aead.Open(nil, nonce, wrapped, nil)
	if err != nil {
		return nil, &AuthenticationError{Op: "unwrap"}
	}
	if len(raw) != KeySize {
		Zero(raw)
		return nil, &AuthenticationError{Op: "unwrap"}
	}
	k := new(Key)
	copy(k[:], raw)
	Zero(raw)
	return k, nil
}
