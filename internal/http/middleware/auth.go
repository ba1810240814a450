package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/vaccilearn-backend/internal/pkg/apierr"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/ctxutil"
	"github.com/yungbote/vaccilearn-backend/internal/pkg/logger"
)

// AuthMiddleware trusts HS256 tokens issued by the identity service. The subject
// claim is the learner id; the token id, when present, becomes the session id.
type AuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewAuthMiddleware(log *logger.Logger, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("Middleware", "AuthMiddleware"),
		secret: []byte(secret),
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			abortUnauthorized(c, "missing or invalid token")
			return
		}
		rd, err := am.parse(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			abortUnauthorized(c, err.Error())
			return
		}
		c.Request = c.Request.WithContext(ctxutil.WithRequestData(c.Request.Context(), rd))
		c.Set("learner_id", rd.LearnerID.String())
		c.Next()
	}
}

func (am *AuthMiddleware) parse(tokenString string) (*ctxutil.RequestData, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	learnerID, err := uuid.Parse(strings.TrimSpace(claims.Subject))
	if err != nil || learnerID == uuid.Nil {
		return nil, fmt.Errorf("invalid token subject")
	}
	rd := &ctxutil.RequestData{LearnerID: learnerID}
	if sid, err := uuid.Parse(claims.ID); err == nil {
		rd.SessionID = sid
	}
	return rd, nil
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{"message": msg, "code": apierr.CodeUnauthorized},
	})
}

// EventSource cannot set headers, so the stream passes its token as a query param.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	return ""
}
