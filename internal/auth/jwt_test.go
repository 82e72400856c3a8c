package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaker_RoundTrip(t *testing.T) {
	m := NewMaker("secret", "marketapi", time.Hour)

	tok, err := m.GenerateToken("user-1", "admin")
	require.NoError(t, err)

	claims, err := m.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "marketapi", claims.Issuer)
}

func TestMaker_Rejects(t *testing.T) {
	m := NewMaker("secret", "marketapi", time.Hour)
	valid, _ := m.GenerateToken("user-1", "user")

	expired := NewMaker("secret", "marketapi", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredTok, _ := expired.GenerateToken("user-1", "user")

	otherIssuer, _ := NewMaker("secret", "someone-else", time.Hour).GenerateToken("user-1", "user")
	otherSecret, _ := NewMaker("other", "marketapi", time.Hour).GenerateToken("user-1", "user")
	noSubject, _ := m.GenerateToken("", "user")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1", "iss": "marketapi"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expiredTok,
		"wrong issuer": otherIssuer,
		"wrong secret": otherSecret,
		"no subject":   noSubject,
		"alg none":     none,
		"tampered":     valid + "x",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.ParseToken(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
