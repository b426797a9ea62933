package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"e_store/internal/middleware"
)

// GET /info
func (h *Handler) Info(c *gin.Context) {
	list, err := h.Inventory.ListByOwner(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "info.html", gin.H{"Title": "My account", "Products": list})
}

// POST /delete_account
func (h *Handler) DeleteAccount(c *gin.Context) {
	err := h.Inventory.DeleteAccount(c.Request.Context(), middleware.CurrentUser(c), middleware.Session(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.redirect(c, "/")
}
