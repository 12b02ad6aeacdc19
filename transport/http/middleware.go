package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxKeyDSSN is where the auth middleware stores the verified subject.
const ctxKeyDSSN = "dssn"

// AuthMiddleware validates the bearer token and checks the session it was
// issued for still exists, so a logout invalidates outstanding tokens.
func AuthMiddleware(portal *Portal) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid authorization header"})
			return
		}

		dssn, sessionID, err := portal.tokens.VerifyAccess(auth[len("Bearer "):])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}

		if sessionID != "" {
			portal.mu.Lock()
			_, live := portal.sessions[sessionID]
			portal.mu.Unlock()
			if !live {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Session is no longer valid"})
				return
			}
		}

		c.Set(ctxKeyDSSN, dssn)
		c.Next()
	}
}
