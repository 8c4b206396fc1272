package auth

import (
	"testing"
	"time"

	"doccustody/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	id := model.Identity{Subject: "student-1", Role: model.RoleStudent}

	tok, err := GenerateToken(id, secret, "registrar", time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(tok, secret, "registrar")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken(model.Identity{Subject: "u1", Role: model.RoleAdmin}, secret, "", -time.Second)
	require.NoError(t, err)

	_, err = ParseToken(tok, secret, "")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseToken_Rejects(t *testing.T) {
	t.Parallel()

	secret := []byte("right-secret")
	valid, err := GenerateToken(model.Identity{Subject: "u2", Role: model.RoleAdmin}, secret, "registrar", time.Hour)
	require.NoError(t, err)

	noRole, err := GenerateToken(model.Identity{Subject: "u3", Role: "superuser"}, secret, "", time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u4"},
		Role:             model.RoleAdmin,
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
		issuer string
	}{
		{name: "wrong secret", token: valid, secret: []byte("wrong-secret"), issuer: "registrar"},
		{name: "wrong issuer", token: valid, secret: secret, issuer: "someone-else"},
		{name: "unknown role", token: noRole, secret: secret},
		{name: "alg none", token: unsigned, secret: secret},
		{name: "malformed", token: "not.a.jwt", secret: secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.token, tt.secret, tt.issuer)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
