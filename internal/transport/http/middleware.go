package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/auth"
	"github.com/civicalert/civicalert-server/internal/store"
)

const (
	// ContextKeyUserID is the context key for storing user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUserName is the context key for storing the display name.
	ContextKeyUserName = "user_name"
	// ContextKeyRole is the context key for storing the user role.
	ContextKeyRole = "role"
)

// AuthMiddleware creates a middleware that validates bearer tokens.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyUserName, claims.Name)
		c.Set(ContextKeyRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin rejects requests whose token does not carry the admin role.
// Must run after AuthMiddleware.
func RequireAdmin(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextKeyRole)
		if role != store.RoleAdmin {
			logger.Debug().Str("role", role).Msg("admin access denied")
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}

func currentUser(c *gin.Context) (id, name, role string) {
	return c.GetString(ContextKeyUserID), c.GetString(ContextKeyUserName), c.GetString(ContextKeyRole)
}
