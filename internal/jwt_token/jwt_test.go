package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "skimvault/pkg/domain-errors"
)

var jwtService = NewJWTService(
	"test-signing-key",
	"test-issuer",
	"test-audience",
)

const caller = "rrkah-fqaaa-aaaaa-aaaaq-cai"

var expiresIn = time.Hour

func Test_Issue(t *testing.T) {
	token, err := jwtService.Issue(caller, expiresIn)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, caller, claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(expiresIn), claims.ExpiresAt.Time, time.Minute)
}

func Test_Parse_InvalidToken(t *testing.T) {
	_, err := jwtService.Parse("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Parse_ExpiredToken(t *testing.T) {
	token, err := jwtService.Issue(caller, -time.Hour)
	require.NoError(t, err)

	_, err = jwtService.Parse(token)
	require.Error(t, err)
	assert.Equal(t, "token has expired", err.Error())
}

func Test_Parse_WrongAudience(t *testing.T) {
	other := NewJWTService("test-signing-key", "test-issuer", "other-audience")
	token, err := other.Issue(caller, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.Parse(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_Parse_WrongKey(t *testing.T) {
	other := NewJWTService("another-key", "test-issuer", "test-audience")
	token, err := other.Issue(caller, expiresIn)
	require.NoError(t, err)

	_, err = jwtService.Parse(token)
	require.Error(t, err)
}

func Test_ForMiddleware(t *testing.T) {
	validate := ForMiddleware(jwtService)

	token, err := jwtService.Issue(caller, expiresIn)
	require.NoError(t, err)
	claims, err := validate.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, caller, claims.Caller)
	assert.NotEmpty(t, claims.JTI)

	anonymous, err := jwtService.Issue("", expiresIn)
	require.NoError(t, err)
	_, err = validate.ValidateToken(anonymous)
	assert.ErrorIs(t, err, errNoSubject)

	_, err = validate.ValidateToken("not-a-token")
	assert.Error(t, err)
}
