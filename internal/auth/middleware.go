package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bosocmputer/doubtsolver/internal/storage"
)

const userContextKey = "auth_user"

// RequireUser rejects requests without a valid bearer token and stores the
// resolved user on the gin context
func (s *Service) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication required"})
			return
		}

		userID, err := s.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired token"})
			return
		}

		user, err := s.UserByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Failed to load user"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by RequireUser, or nil
func CurrentUser(c *gin.Context) *storage.User {
	if v, ok := c.Get(userContextKey); ok {
		if user, ok := v.(*storage.User); ok {
			return user
		}
	}
	return nil
}
