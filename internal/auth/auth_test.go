// internal/auth/auth_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	encoded, err := CreateHash("correct horse battery staple", Params)
	require.NoError(t, err)
	assert.Contains(t, encoded, "$argon2id$")

	match, err := ComparePasswordAndHash("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = ComparePasswordAndHash("wrong password", encoded)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestComparePasswordAndHashRejectsGarbage(t *testing.T) {
	_, err := ComparePasswordAndHash("anything", "not-an-encoded-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestJWTRoundTrip(t *testing.T) {
	t.Setenv("TOKEN_EXPIRE_TIME", "1h")
	Init()

	token, err := CreateJWT("admin")
	require.NoError(t, err)

	subject, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)

	_, err = AuthenticateJWT(token + "tampered")
	assert.Error(t, err)
}
