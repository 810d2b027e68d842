package middleware

import (
	"net/http"
	"strings"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/ErlanBelekov/account-service/internal/reqctx"
	"github.com/ErlanBelekov/account-service/internal/token"
	"github.com/gin-gonic/gin"
)

const (
	errUnauthorized = "Unauthorized"
	errForbidden    = "Forbidden"

	claimsKey = "claims"
	userIDKey = "userID"
)

// SessionVerifier is satisfied by *token.Issuer.
type SessionVerifier interface {
	VerifySession(raw string) (token.SessionClaims, error)
}

// Auth validates a Bearer session token and sets "userID" and the session
// claims in the gin context. Confirm and pwd tokens are rejected.
func Auth(tokens SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		claims, err := tokens.VerifySession(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(reqctx.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		if claims.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errForbidden})
			return
		}
		c.Next()
	}
}

// Claims returns the session claims stored by Auth.
func Claims(c *gin.Context) (token.SessionClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return token.SessionClaims{}, false
	}
	claims, ok := v.(token.SessionClaims)
	return claims, ok
}
