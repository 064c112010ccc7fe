package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avinashreddy333/Lockspace/internal/crypto"
)

// ErrInvalidToken covers every verification failure: bad signature,
// wrong method, wrong issuer, expired, malformed.
var ErrInvalidToken = errors.New("auth: invalid token")

// Signer mints and verifies the short-lived bearer tokens the daemon
// hands out after a successful workspace unlock. A token carries the
// workspace identifier and nothing else: there are no users and no
// roles, possession of the password was the entire proof.
type Signer struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	iss  string
	ttl  time.Duration
}

// NewSigner wraps an ed25519 private key. Keys are generated fresh on
// daemon start; tokens do not survive a restart.
func NewSigner(priv ed25519.PrivateKey, iss string, ttl time.Duration) *Signer {
	return &Signer{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
		iss:  iss,
		ttl:  ttl,
	}
}

// Issue returns a signed token bound to the workspace id, plus its
// expiry.
func (s *Signer) Issue(workspaceID string) (string, time.Time, error) {
	jti, err := randomJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now()
	exp := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"iss": s.iss,
		"sub": workspaceID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": jti,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.priv)
	return signed, exp, err
}

// Verify checks signature, issuer, and expiry, and returns the
// workspace id the token is bound to.
func (s *Signer) Verify(tokenStr string) (string, error) {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidToken
		}
		return s.pub, nil
	}

	tok, err := jwt.ParseWithClaims(
		tokenStr,
		jwt.MapClaims{},
		keyFunc,
		jwt.WithIssuer(s.iss),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}

	claims := tok.Claims.(jwt.MapClaims)
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func randomJTI() (string, error) {
	b, err := crypto.RandomBytes(16)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
