package crypto

import (
	"crypto/aes"
	"crypto/cipher"
)

// NonceSize is the AEAD nonce length (96 bits), shared by both suites.
const NonceSize = 12

// Overhead is the authentication tag length appended to every
// ciphertext.
const Overhead = 16

func newGCM(key *Key) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plaintext under key with AES-256-GCM and a fresh random
// nonce. The nonce is returned separately from the ciphertext because
// the persistence layer stores them in separate columns; the tag is
// appended to the ciphertext.
func Encrypt(key *Key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce, err = NewNonce()
	if err != nil {
		return nil, nil, err
	}
	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Decrypt opens ciphertext produced by Encrypt. Any verification
// failure, whatever the underlying reason, is *AuthenticationError.
func Decrypt(key *Key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != NonceSize {
		return nil, &AuthenticationError{Op: "decrypt"}
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, &AuthenticationError{Op: "decrypt"}
	}
	return plaintext, nil
}
