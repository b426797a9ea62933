package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"e_store/internal/cache"
)

const (
	LoginMaxAttempts    = 5
	RegisterMaxAttempts = 3

	LoginCooldown    = 15 * time.Minute
	RegisterCooldown = 30 * time.Minute
)

func tooMany(c *gin.Context, log *zap.Logger, page string, wait time.Duration) {
	minutes := int(wait.Minutes()) + 1
	c.Header("Retry-After", fmt.Sprintf("%d", int(wait.Seconds())))
	SaveSession(c, log)
	c.HTML(http.StatusTooManyRequests, page, gin.H{
		"Title": "Slow down",
		"User":  CurrentUser(c),
		"Error": fmt.Sprintf("Too many attempts. Try again in %d minutes.", minutes),
	})
	c.Abort()
}

// LoginRateLimit blocks an email after repeated failed logins. A failed
// login is a 401 from the handler; a redirect means success.
func LoginRateLimit(limiter cache.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
		if email == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := "login:" + email

		wait, err := limiter.Check(ctx, key, LoginMaxAttempts, LoginCooldown)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		} else if wait > 0 {
			tooMany(c, log, "login.html", wait)
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			err = limiter.Fail(ctx, key, LoginCooldown)
		case http.StatusFound:
			err = limiter.Reset(ctx, key)
		}
		if err != nil {
			log.Warn("rate limiter update failed", zap.Error(err))
		}
	}
}

// RegisterRateLimit caps account creation per client IP.
func RegisterRateLimit(limiter cache.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "register:" + c.ClientIP()

		wait, err := limiter.Check(ctx, key, RegisterMaxAttempts, RegisterCooldown)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		} else if wait > 0 {
			tooMany(c, log, "register.html", wait)
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusFound {
			if err := limiter.Fail(ctx, key, RegisterCooldown); err != nil {
				log.Warn("rate limiter update failed", zap.Error(err))
			}
		}
	}
}
