package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-phrase")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotContains(t, hash, "s3cret-phrase")

	assert.True(t, VerifyPassword(hash, "s3cret-phrase"))
	assert.False(t, VerifyPassword(hash, "another-phrase"))
	assert.False(t, VerifyPassword(hash, ""))
}

func TestAccessTokenRoundTrip(t *testing.T) {
	theAuth, err := New([]byte("unit-test-signing-secret"))
	require.NoError(t, err)

	token, err := theAuth.BuildAccessToken("user-42")
	require.NoError(t, err)

	userID, err := theAuth.ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	theAuth, err := New([]byte("unit-test-signing-secret"))
	require.NoError(t, err)

	token, err := theAuth.BuildRefreshToken("user-42")
	require.NoError(t, err)

	userID, err := theAuth.ParseUserID(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestParseUserIDRejectsEmptyToken(t *testing.T) {
	theAuth, err := New([]byte("unit-test-signing-secret"))
	require.NoError(t, err)

	_, err = theAuth.ParseUserID("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserIDRejectsMalformedToken(t *testing.T) {
	theAuth, err := New([]byte("unit-test-signing-secret"))
	require.NoError(t, err)

	_, err = theAuth.ParseUserID("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserIDRejectsWrongSecret(t *testing.T) {
	issuer, err := New([]byte("first-secret"))
	require.NoError(t, err)
	verifier, err := New([]byte("second-secret"))
	require.NoError(t, err)

	token, err := issuer.BuildRefreshToken("user-42")
	require.NoError(t, err)

	_, err = verifier.ParseUserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserIDRejectsExpiredToken(t *testing.T) {
	theAuth, err := New([]byte("unit-test-signing-secret"))
	require.NoError(t, err)

	token, err := theAuth.buildJWTString("user-42", -time.Minute)
	require.NoError(t, err)

	_, err = theAuth.ParseUserID(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUserIDRejectsTamperedToken(t *testing.T) {
	theAuth, err := New([]byte("unit-test-signing-secret"))
	require.NoError(t, err)

	token, err := theAuth.BuildRefreshToken("user-42")
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"

	_, err = theAuth.ParseUserID(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
