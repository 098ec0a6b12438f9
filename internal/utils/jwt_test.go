// internal/utils/jwt_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWT("person-1", "jo@example.com", "affiliate", 1)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	assert.NoError(t, err)
	assert.Equal(t, "person-1", claims.UserID)
	assert.Equal(t, "jo@example.com", claims.Email)
	assert.Equal(t, "affiliate", claims.Role)
}

func TestValidateJWTRejectsGarbage(t *testing.T) {
	SetJWTSecret("test-secret")

	_, err := ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestGenerateAffiliateCode(t *testing.T) {
	code, err := GenerateAffiliateCode()
	assert.NoError(t, err)
	assert.Len(t, code, len("aff_")+8)
	assert.Contains(t, code, "aff_")

	other, err := GenerateAffiliateCode()
	assert.NoError(t, err)
	assert.NotEqual(t, code, other)
}
