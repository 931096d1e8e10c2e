package utils

import (
	"errors"
	"fmt"
	"time"

	"campus_api/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoSecret is returned for a role that has no configured secret.
	ErrNoSecret = errors.New("no secret configured for role")
	// ErrRoleMismatch is returned when a token's role claim disagrees with the secret that verified it.
	ErrRoleMismatch = errors.New("token role does not match")
)

// JWTClaims custom claims for JWT
type JWTClaims struct {
	UserID string     `json:"userId"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTUtil signs and verifies tokens with one HMAC secret per role
type JWTUtil struct {
	secrets         map[model.Role][]byte
	expirationHours int64
}

// NewJWTUtil creates a new JWTUtil. Roles with an empty secret are left unconfigured.
func NewJWTUtil(secrets map[model.Role]string, expirationHours int64) *JWTUtil {
	ju := &JWTUtil{secrets: make(map[model.Role][]byte, len(secrets)), expirationHours: expirationHours}
	for role, secret := range secrets {
		if secret != "" {
			ju.secrets[role] = []byte(secret)
		}
	}
	return ju
}

// GenerateToken signs a token for userID with the secret of role
func (ju *JWTUtil) GenerateToken(userID string, role model.Role) (string, error) {
	secret, ok := ju.secrets[role]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoSecret, role)
	}
	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * time.Duration(ju.expirationHours))),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies tokenString against the secret of role
func (ju *JWTUtil) ValidateToken(tokenString string, role model.Role) (*JWTClaims, error) {
	secret, ok := ju.secrets[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSecret, role)
	}
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Role != role {
		return nil, fmt.Errorf("%w: %s", ErrRoleMismatch, claims.Role)
	}
	return claims, nil
}
