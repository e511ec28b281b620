package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sanjeevkumarraob/drive-search-service/internal/auth"
	"github.com/sanjeevkumarraob/drive-search-service/internal/drive"
	"github.com/sanjeevkumarraob/drive-search-service/internal/session"
)

// LoggerMiddleware creates a custom logging middleware
func LoggerMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Start timer
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		// Calculate response time
		latency := time.Since(start)

		// Log request details
		logger.Printf(
			"[%s] %s %s | %d | %s | %s",
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Writer.Status(),
			latency,
			c.Errors.String(),
		)
	}
}

// AuthMiddleware builds Drive credentials for the request. A bearer
// Authorization header is used as is; otherwise the session tokens are used
// and a refreshed access token is written back to the session.
func AuthMiddleware(googleAuth *auth.GoogleAuth, sessionManager *session.SessionManager, logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok && token != "" {
			c.Set(credentialsKey, drive.NewCredentials(token, nil))
			c.Next()
			return
		}

		tokens, err := sessionManager.Tokens(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":          "Not authenticated",
				"reauthenticate": true,
			})
			return
		}

		var refresh drive.RefreshFunc
		if tokens.RefreshToken != "" {
			refresh = func(ctx context.Context) (string, error) {
				token, err := googleAuth.Refresh(ctx, tokens.RefreshToken)
				if err != nil {
					return "", err
				}
				if err := sessionManager.UpdateAccessToken(c, token.AccessToken, token.Expiry); err != nil {
					logger.Printf("Failed to persist refreshed token: %v", err)
				}
				return token.AccessToken, nil
			}
		}

		if user, err := sessionManager.User(c); err == nil {
			c.Set(userKey, user)
		}
		c.Set(credentialsKey, drive.NewCredentials(tokens.AccessToken, refresh))
		c.Next()
	}
}
