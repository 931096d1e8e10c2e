package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"campus_api/internal/model"
	"campus_api/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	AuthUserKey = "authUser"
	AuthRoleKey = "authRole"
)

type identityKey struct{}

// TokenVerifier verifies a token with the secret of a single role.
type TokenVerifier interface {
	ValidateToken(tokenString string, role model.Role) (*utils.JWTClaims, error)
}

// RequireRoles admits a request whose bearer token verifies under one of roles.
// Roles are tried in the order given and the first one that verifies wins; the
// rest of the chain then runs exactly once. Any verification failure, including
// a panic in the verifier, counts as a non-match.
func RequireRoles(verifier TokenVerifier, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "Authorization header required")
			return
		}

		for _, role := range roles {
			claims, err := verify(verifier, tokenString, role)
			if err != nil {
				continue
			}
			setIdentity(c, model.Identity{Subject: claims.UserID, Role: role})
			c.Next()
			return
		}

		abortWithMessage(c, http.StatusUnauthorized, "Invalid or expired token")
	}
}

func verify(verifier TokenVerifier, tokenString string, role model.Role) (claims *utils.JWTClaims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = nil, fmt.Errorf("token verification panicked: %v", r)
		}
	}()
	return verifier.ValidateToken(tokenString, role)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *gin.Context, id model.Identity) {
	c.Set(AuthUserKey, id.Subject)
	c.Set(AuthRoleKey, id.Role)
	c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), identityKey{}, id))
}

// IdentityFrom returns the identity attached by RequireRoles.
func IdentityFrom(c *gin.Context) (model.Identity, bool) {
	return IdentityFromContext(c.Request.Context())
}

// IdentityFromContext returns the identity attached to a request context by RequireRoles.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.MessageResponse{Message: message})
}
