package mw

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the name of the kitchen session cookie.
const SessionCookie = "mgmt"

// SessionToken derives the cookie value from the shared password and secret.
func SessionToken(password, secret string) string {
	sum := sha256.Sum256([]byte(password + secret))
	return hex.EncodeToString(sum[:])
}

// ValidToken compares a presented token with the expected one in constant time.
func ValidToken(presented, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// KitchenAuth rejects requests without a valid session cookie.
func KitchenAuth(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || !ValidToken(token, expected) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
