package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eventhub/utils"
)

// ContextUserID is the gin context key holding the caller's user id.
const ContextUserID = "userId"

// Authenticate accepts "Authorization: Bearer <token>" or the bare token and
// stores the caller's id under ContextUserID.
func Authenticate(auth *utils.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if scheme, rest, ok := strings.Cut(token, " "); ok && strings.EqualFold(scheme, "Bearer") {
			token = strings.TrimSpace(rest)
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		userID, err := auth.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Not authorized."})
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
