package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"e_store/internal/session"
)

const sessionKey = "session"

// Sessions loads the browser session into the gin context.
func Sessions(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, store.Load(c.Request))
		c.Next()
	}
}

func Session(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

// SaveSession writes the cookie if the session changed. It has to run
// before anything is written to the response.
func SaveSession(c *gin.Context, log *zap.Logger) {
	v, ok := c.Get(sessionKey)
	if !ok {
		return
	}
	sess := v.(*session.Session)
	if !sess.Dirty() {
		return
	}
	if err := sess.Save(c.Request, c.Writer); err != nil {
		log.Error("session save failed", zap.Error(err))
	}
}

// RenderError renders the error page with status.
func RenderError(c *gin.Context, log *zap.Logger, status int, message string) {
	SaveSession(c, log)
	c.HTML(status, "error.html", gin.H{
		"Title":   "Error",
		"User":    CurrentUser(c),
		"Status":  status,
		"Message": message,
	})
}
