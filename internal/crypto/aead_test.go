package crypto

import (
	"bytes"
	"testing"
)

func randKey(t *testing.T) *Key {
	t.Helper()
	k, err := NewRandomKey()
	if err != nil {
		t.Fatalf("random key: %v", err)
	}
	return k
}

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b, err := RandomBytes(n)
	if err != nil {
		t.Fatalf("random bytes: %v", err)
	}
	return b
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := randKey(t)
	for _, n := range []int{0, 1, 16, 255, 4096} {
		pt := randBytes(t, n)
		nonce, ct, err := Encrypt(key, pt)
		if err != nil {
			t.Fatalf("encrypt %d bytes: %v", n, err)
		}
		if len(nonce) != NonceSize {
			t.Fatalf("nonce length %d, want %d", len(nonce), NonceSize)
		}
		if len(ct) != n+Overhead {
			t.Fatalf("ciphertext length %d, want %d", len(ct), n+Overhead)
		}
		out, err := Decrypt(key, nonce, ct)
		if err != nil {
			t.Fatalf("decrypt %d bytes: %v", n, err)
		}
		if !bytes.Equal(pt, out) {
			t.Fatalf("plaintext mismatch at %d bytes", n)
		}
	}
}

func TestEncryptFreshNoncePerCall(t *testing.T) {
	key := randKey(t)
	pt := []byte("same plaintext")
	n1, c1, err := Encrypt(key, pt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	n2, c2, err := Encrypt(key, pt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Equal(n1, n2) {
		t.Fatal("nonce reused across calls")
	}
	if bytes.Equal(c1, c2) {
		t.Fatal("identical ciphertexts for distinct nonces")
	}
}

func TestDecryptWrongKey(t *testing.T) {
	pt := []byte("secret payload")
	for i := 0; i < 32; i++ {
		k1 := randKey(t)
		k2 := randKey(t)
		nonce, ct, err := Encrypt(k1, pt)
		if err != nil {
			t.Fatalf("encrypt: %v", err)
		}
		if _, err := Decrypt(k2, nonce, ct); !IsAuthenticationError(err) {
			t.Fatalf("want AuthenticationError under wrong key, got %v", err)
		}
	}
}

func TestDecryptTamperAnyBit(t *testing.T) {
	key := randKey(t)
	pt := randBytes(t, 24)
	nonce, ct, err := Encrypt(key, pt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for i := 0; i < len(ct); i++ {
		for bit := 0; bit < 8; bit++ {
			mut := append([]byte(nil), ct...)
			mut[i] ^= 1 << bit
			if _, err := Decrypt(key, nonce, mut); !IsAuthenticationError(err) {
				t.Fatalf("ciphertext byte %d bit %d: want AuthenticationError, got %v", i, bit, err)
			}
		}
	}
	for i := 0; i < len(nonce); i++ {
		for bit := 0; bit < 8; bit++ {
			mut := append([]byte(nil), nonce...)
			mut[i] ^= 1 << bit
			if _, err := Decrypt(key, mut, ct); !IsAuthenticationError(err) {
				t.Fatalf("nonce byte %d bit %d: want AuthenticationError, got %v", i, bit, err)
			}
		}
	}
}

func TestDecryptTruncatedCiphertext(t *testing.T) {
	key := randKey(t)
	nonce, ct, err := Encrypt(key, []byte("hello"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	for cut := 1; cut <= len(ct); cut++ {
		if _, err := Decrypt(key, nonce, ct[:len(ct)-cut]); !IsAuthenticationError(err) {
			t.Fatalf("truncated by %d: want AuthenticationError, got %v", cut, err)
		}
	}
	if _, err := Decrypt(key, nonce[:NonceSize-1], ct); !IsAuthenticationError(err) {
		t.Fatalf("short nonce: want AuthenticationError, got %v", err)
	}
}

func TestNewKeyLength(t *testing.T) {
	if _, err := NewKey(make([]byte, 16)); err != ErrKeySize {
		t.Fatalf("want ErrKeySize for short material, got %v", err)
	}
	raw := randBytes(t, KeySize)
	k, err := NewKey(raw)
	if err != nil {
		t.Fatalf("new key: %v", err)
	}
	if !bytes.Equal(raw, k[:]) {
		t.Fatal("key handle does not hold the supplied material")
	}
}

func TestKeyZero(t *testing.T) {
	k := randKey(t)
	k.Zero()
	for i := range k {
		if k[i] != 0 {
			t.Fatal("key material survived Zero")
		}
	}
	var nilKey *Key
	nilKey.Zero()
}
