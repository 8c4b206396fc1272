// Package auth verifies the bearer tokens that identify callers. Tokens are minted by the identity
// provider; GenerateToken exists for operators and tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"doccustody/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Claims carries the subject in the standard "sub" claim and the caller's role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// GenerateToken signs an HS256 token for id valid for ttl.
func GenerateToken(id model.Identity, secret []byte, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: id.Role,
	})
	return token.SignedString(secret)
}

// ParseToken verifies an HS256 token and returns the identity it carries. A non-empty issuer must match.
func ParseToken(tokenString string, secret []byte, issuer string) (model.Identity, error) {
	claims := &Claims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, ErrTokenExpired
		}
		return model.Identity{}, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return model.Identity{}, ErrInvalidToken
	}

	switch claims.Role {
	case model.RoleAdmin, model.RoleStudent:
	default:
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}
