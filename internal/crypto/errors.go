package crypto

import (
	"errors"
	"fmt"
)

// AuthenticationError reports an AEAD tag verification failure. A wrong
// key, a wrong nonce, and tampered ciphertext all produce it and are
// indistinguishable from one another.
type AuthenticationError struct {
	Op string // "decrypt" or "unwrap"
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("crypto: %s: message authentication failed", e.Op)
}

// IsAuthenticationError reports whether err is an AuthenticationError
// anywhere in its chain.
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
