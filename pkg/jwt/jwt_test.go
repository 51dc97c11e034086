package jwt_test

import (
	"testing"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-backend/pkg/jwt"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	m := jwt.NewManager("test-secret")

	token, err := m.Generate("4c8b2c0e-0000-0000-0000-000000000001", "mluukkai")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "4c8b2c0e-0000-0000-0000-000000000001", claims.UserID)
	assert.Equal(t, "mluukkai", claims.Username)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := jwt.NewManager("secret-a").Generate("id", "alice")
	require.NoError(t, err)

	_, err = jwt.NewManager("secret-b").Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	m := jwt.NewManager("test-secret")

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Validate(token)
		assert.Error(t, err, "token %q must not validate", token)
	}
}

func TestValidateRejectsUnsignedAlgorithm(t *testing.T) {
	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{
		"user_id":  "id",
		"username": "mallory",
	})
	token, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = jwt.NewManager("test-secret").Validate(token)
	assert.Error(t, err, "alg=none tokens must be rejected")
}
