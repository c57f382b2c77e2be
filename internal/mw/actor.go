package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const actorKey = "actorID"

// Actor reads the authenticated user id from header and stores it on the
// context. Requests without one are refused.
func Actor(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + header + " header"})
			return
		}
		c.Set(actorKey, id)
		c.Next()
	}
}

// ActorID returns the user id stored by Actor, or "".
func ActorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
