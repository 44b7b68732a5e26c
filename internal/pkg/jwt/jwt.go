package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims mirrors the tokens issued by the inventory auth service. The
// tenant travels in "sub", older tokens carried it in "user_id".
type Claims struct {
	Role   string `json:"role,omitempty"`
	Type   string `json:"type,omitempty"`
	UserID string `json:"user_id,omitempty"`
	jwtlib.RegisteredClaims
}

// TenantID returns the caller identity used to scope every read and write.
func (c *Claims) TenantID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// GenerateToken is only used by local tooling and tests, tokens are issued elsewhere.
func GenerateToken(userID, role string, secret []byte, ttl time.Duration) (string, error) {
	return generate(userID, role, TokenTypeAccess, secret, ttl)
}

func generate(userID, role, tokenType string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		Type: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &Claims{}, func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type == TokenTypeRefresh {
		return nil, errors.New("refresh token is not accepted")
	}
	if claims.TenantID() == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
