package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"e_store/internal/middleware"
	"e_store/internal/services"
)

// GET /?city=&search=&min_price=&max_price=
func (h *Handler) Index(c *gin.Context) {
	in := services.FilterInput{
		City:     c.Query("city"),
		Search:   c.Query("search"),
		MinPrice: c.Query("min_price"),
		MaxPrice: c.Query("max_price"),
	}
	data := gin.H{"Title": "Marketplace", "Filter": in, "Added": c.Query("added") == "true"}

	f, err := services.ParseFilter(in)
	if err != nil {
		data["Error"] = err.Error()
		h.render(c, statusFor(err), "index.html", data)
		return
	}

	list, err := h.Catalog.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	data["Products"] = list
	h.render(c, http.StatusOK, "index.html", data)
}

// GET /search?q=
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	list, err := h.Catalog.Search(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "index.html", gin.H{
		"Title":    "Search",
		"Query":    q,
		"Filter":   services.FilterInput{},
		"Products": list,
		"Added":    c.Query("added") == "true",
	})
}

// GET /product/:id
func (h *Handler) ProductPage(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	p, err := h.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, "product.html", gin.H{
		"Title":   p.Name,
		"Product": p,
		"Added":   c.Query("added") == "true",
	})
}

// GET /add_item
func (h *Handler) AddItemPage(c *gin.Context) {
	h.render(c, http.StatusOK, "add_item.html", gin.H{"Title": "Sell an item"})
}

// POST /add_item (multipart, image in "image")
func (h *Handler) AddItem(c *gin.Context) {
	if h.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)
	}

	var img *services.Image
	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			h.fail(c, err)
			return
		}
		defer f.Close()
		img = &services.Image{Filename: fh.Filename, Size: fh.Size, Body: f}
	case errors.Is(err, http.ErrMissingFile):
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, err)
			return
		}
		h.fail(c, fmt.Errorf("%w: could not read the upload", services.ErrInvalidInput))
		return
	}

	in := services.ProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Quantity:    c.PostForm("quantity"),
		Location:    c.PostForm("location"),
	}

	if _, err := h.Inventory.Create(c.Request.Context(), middleware.CurrentUser(c), in, img); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError || status == http.StatusForbidden {
			h.fail(c, err)
			return
		}
		h.render(c, status, "add_item.html", gin.H{"Title": "Sell an item", "Error": err.Error(), "Form": in})
		return
	}
	h.redirect(c, "/")
}

// POST /product/remove/:id
func (h *Handler) RemoveProduct(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.Inventory.Remove(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	h.redirect(c, "/info")
}

// POST /product/update_quantity/:id (form field new_quantity; quantity is
// accepted too)
func (h *Handler) UpdateQuantity(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	raw, ok := c.GetPostForm("new_quantity")
	if !ok {
		raw = c.PostForm("quantity")
	}
	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: quantity must be a whole number", services.ErrInvalidInput))
		return
	}
	if err := h.Inventory.UpdateQuantity(c.Request.Context(), middleware.CurrentUser(c), id, qty); err != nil {
		h.fail(c, err)
		return
	}
	h.redirect(c, "/info")
}
