package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"e_store/internal/models"
	"e_store/internal/services"
)

const userKey = "user"

// LoadUser resolves the signed-in user on every request. A session pointing
// at a deleted account is treated as anonymous.
func LoadUser(auth *services.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := auth.Authenticate(c.Request.Context(), Session(c))
		switch {
		case err == nil:
			c.Set(userKey, user)
		case errors.Is(err, services.ErrNotAuthenticated), errors.Is(err, services.ErrUserNotFound):
		default:
			log.Error("authenticate failed", zap.Error(err))
			RenderError(c, log, http.StatusInternalServerError, "Something went wrong.")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// RequireUserPage sends anonymous visitors to the login page.
func RequireUserPage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireUserAction rejects anonymous form submissions with 403.
func RequireUserAction(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			RenderError(c, log, http.StatusForbidden, "Please log in first.")
			c.Abort()
			return
		}
		c.Next()
	}
}
