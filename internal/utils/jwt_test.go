package utils

import (
	"testing"
	"time"

	"campus_api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func secrets() map[model.Role]string {
	return map[model.Role]string{
		model.RoleCustomer: "customer-secret",
		model.RoleAdmin:    "admin-secret",
	}
}

func TestJWTUtil_GenerateToken(t *testing.T) {
	jwtUtil := NewJWTUtil(secrets(), 1)
	userID := "a1"

	tokenString, err := jwtUtil.GenerateToken(userID, model.RoleCustomer)

	assert.NoError(t, err)
	assert.NotEmpty(t, tokenString)

	// Validate the token to ensure it's well-formed and contains correct claims
	claims, err := jwtUtil.ValidateToken(tokenString, model.RoleCustomer)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID, claims.Subject)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTUtil_GenerateToken_UnconfiguredRole(t *testing.T) {
	jwtUtil := NewJWTUtil(map[model.Role]string{model.RolePartner: ""}, 1)

	_, err := jwtUtil.GenerateToken("a1", model.RolePartner)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = jwtUtil.ValidateToken("whatever", model.RoleDeliverer)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestJWTUtil_ValidateToken_OtherRoleSecret(t *testing.T) {
	jwtUtil := NewJWTUtil(secrets(), 1)

	tokenString, _ := jwtUtil.GenerateToken("a1", model.RoleCustomer)

	_, err := jwtUtil.ValidateToken(tokenString, model.RoleAdmin)
	assert.Error(t, err)
}

func TestJWTUtil_ValidateToken_RoleClaimMismatch(t *testing.T) {
	// Both roles share a secret, so only the role claim tells them apart.
	jwtUtil := NewJWTUtil(map[model.Role]string{model.RoleCustomer: "same", model.RoleAdmin: "same"}, 1)

	tokenString, _ := jwtUtil.GenerateToken("a1", model.RoleCustomer)

	_, err := jwtUtil.ValidateToken(tokenString, model.RoleAdmin)
	assert.ErrorIs(t, err, ErrRoleMismatch)
}

func TestJWTUtil_ValidateToken_InvalidToken(t *testing.T) {
	jwtUtil := NewJWTUtil(secrets(), 1)

	_, err := jwtUtil.ValidateToken("invalid.token.string", model.RoleCustomer)
	assert.Error(t, err)
}

func TestJWTUtil_ValidateToken_ExpiredToken(t *testing.T) {
	jwtUtil := NewJWTUtil(secrets(), -1) // Token expires in the past

	tokenString, _ := jwtUtil.GenerateToken("a1", model.RoleCustomer)

	_, err := jwtUtil.ValidateToken(tokenString, model.RoleCustomer)
	assert.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTUtil_ValidateToken_MissingExpiry(t *testing.T) {
	jwtUtil := NewJWTUtil(secrets(), 1)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &JWTClaims{UserID: "a1", Role: model.RoleCustomer})
	tokenString, _ := token.SignedString([]byte("customer-secret"))

	_, err := jwtUtil.ValidateToken(tokenString, model.RoleCustomer)
	assert.Error(t, err)
}

func TestJWTUtil_ValidateToken_InvalidSigningMethod(t *testing.T) {
	jwtUtil := NewJWTUtil(secrets(), 1)
	// Same secret, different HMAC algorithm
	claims := &JWTClaims{
		UserID: "a1",
		Role:   model.RoleCustomer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS384, claims)
	tokenString, _ := token.SignedString([]byte("customer-secret"))

	_, err := jwtUtil.ValidateToken(tokenString, model.RoleCustomer)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected signing method")
}
