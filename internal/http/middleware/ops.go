package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
)

const headerOpsToken = "X-Ops-Token"

// RequireOpsToken guards operator routes with a shared static token.
func RequireOpsToken(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(headerOpsToken))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{"message": "operator token required", "code": apierr.CodeForbidden},
			})
			return
		}
		c.Next()
	}
}
