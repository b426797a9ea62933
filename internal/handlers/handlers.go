// Package handlers renders the marketplace pages and handles its forms.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"e_store/internal/middleware"
	"e_store/internal/services"
)

var errInvalidID = errors.New("invalid id")

// HealthChecker reports whether the backing stores answer.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Auth      *services.AuthService
	Catalog   *services.CatalogService
	Cart      *services.CartService
	Inventory *services.InventoryService
	Health    HealthChecker
	Log       *zap.Logger

	// MaxUploadBytes caps the add_item request body; zero means no cap.
	MaxUploadBytes int64
}

// render saves the session and executes the named template. The signed-in
// user is always available to the layout as .User.
func (h *Handler) render(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["User"] = middleware.CurrentUser(c)
	middleware.SaveSession(c, h.Log)
	c.HTML(status, name, data)
}

func (h *Handler) redirect(c *gin.Context, location string) {
	middleware.SaveSession(c, h.Log)
	c.Redirect(http.StatusFound, location)
}

// fail renders the error page for err. Internal errors are logged and
// hidden from the visitor.
func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		message = "Something went wrong."
	}
	_ = c.Error(err)
	middleware.RenderError(c, h.Log, status, message)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrNotAuthenticated):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrCartItemNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidFilterValue),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
