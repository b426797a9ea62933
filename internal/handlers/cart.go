package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"e_store/internal/middleware"
)

// GET /cart
func (h *Handler) ViewCart(c *gin.Context) {
	view, err := h.Cart.View(c.Request.Context(), middleware.Session(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "cart.html", gin.H{"Title": "Your cart", "Cart": view})
}

// POST /cart/add/:id
func (h *Handler) AddToCart(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Cart.Add(c.Request.Context(), middleware.Session(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.redirect(c, backWithAdded(c.Request.Referer()))
}

// POST /cart/remove/:id
func (h *Handler) RemoveFromCart(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Cart.Remove(c.Request.Context(), middleware.Session(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.redirect(c, "/cart")
}

// backWithAdded turns the referer into a local path with added=true. The
// host is dropped so the redirect never leaves the site.
func backWithAdded(referer string) string {
	path, query := "/", url.Values{}
	if u, err := url.Parse(referer); err == nil && referer != "" {
		if strings.HasPrefix(u.Path, "/") && !strings.HasPrefix(u.Path, "//") && !strings.HasPrefix(u.Path, "/\\") {
			path = u.Path
			query = u.Query()
		}
	}
	query.Set("added", "true")
	return path + "?" + query.Encode()
}
