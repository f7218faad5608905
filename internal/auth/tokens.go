package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by TokenIssuer.Verify for any malformed,
// expired, or mis-signed token.
var ErrInvalidToken = errors.New("auth: invalid token")

// AccessClaims is the JWT payload: sub carries the username, identifying
// the operator the token was issued to.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS512 access tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer returns a TokenIssuer signing with secret and stamping
// every issued token with an expiry ttl in the future.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue returns a signed access token for username, and the token's jti so
// callers can revoke it later.
func (i *TokenIssuer) Issue(username string) (token string, jti string, err error) {
	jti = uuid.NewString()
	now := time.Now()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(i.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// Verify parses and validates token, returning its claims. It does not
// consult a revocation cache; callers that care about logout should check
// one separately using the returned claims' ID.
func (i *TokenIssuer) Verify(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
