package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ABC123DEF456GHI",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, err := TokenExpiry(signedToken(t, exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))

	_, err = TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestNeedsRefresh(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	assert.False(t, NeedsRefresh(fresh, time.Minute))
	assert.True(t, NeedsRefresh(fresh, 2*time.Hour))

	expired := signedToken(t, time.Now().Add(-time.Minute))
	assert.True(t, NeedsRefresh(expired, 0))

	// Unparseable tokens count as expiring.
	assert.True(t, NeedsRefresh("garbage", time.Minute))
}
