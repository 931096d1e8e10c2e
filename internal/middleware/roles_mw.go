package middleware

import (
	"context"
	"net/http"

	"campus_api/internal/model"

	"github.com/gin-gonic/gin"
)

// RequireIdentity rejects requests whose path parameter param does not name
// the verified subject. Callers holding one of the exempt roles skip the check.
// It must run after RequireRoles.
func RequireIdentity(param string, exempt ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := c.Param(param)
		if target == "" {
			abortWithMessage(c, http.StatusBadRequest, "Missing "+param+" parameter")
			return
		}

		id, ok := IdentityFrom(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		for _, role := range exempt {
			if id.Role == role {
				c.Next()
				return
			}
		}
		if id.Subject != target {
			abortWithMessage(c, http.StatusForbidden, "You do not have permission to access this resource")
			return
		}

		c.Next()
	}
}

// AccountVerifier reports whether an account is still live.
type AccountVerifier interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// RequireAccount rejects tokens whose subject no longer has an account.
// Anonymous identities have no account and pass through.
func RequireAccount(accounts AccountVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if id.Role == model.RoleAnonymous {
			c.Next()
			return
		}

		exists, err := accounts.Exists(c.Request.Context(), id.Subject)
		if err != nil {
			_ = c.Error(err)
			abortWithMessage(c, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !exists {
			abortWithMessage(c, http.StatusForbidden, "Token corrupted")
			return
		}

		c.Next()
	}
}
