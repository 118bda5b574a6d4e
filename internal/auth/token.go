// Package auth validates the optional bearer tokens clients may present at
// connection time.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrMissingToken = errors.New("no token provided")

// Claims carried by a relay token. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// Validator checks HS256 tokens signed with a shared secret. A nil
// Validator means authentication is disabled.
type Validator struct {
	secret []byte
}

// NewValidator returns nil when secret is empty, which disables token
// checks entirely.
func NewValidator(secret string) *Validator {
	if secret == "" {
		return nil
	}
	return &Validator{secret: []byte(secret)}
}

func (v *Validator) ValidateToken(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
