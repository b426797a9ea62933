package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"e_store/internal/middleware"
	"e_store/internal/services"
)

// GET /register
func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Title": "Register"})
}

// POST /register
func (h *Handler) Register(c *gin.Context) {
	in := services.RegisterInput{
		FullName: c.PostForm("full_name"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		City:     c.PostForm("city"),
		Phone:    c.PostForm("phone"),
	}

	if _, err := h.Auth.Register(c.Request.Context(), in); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.fail(c, err)
			return
		}
		msg := err.Error()
		if errors.Is(err, services.ErrDuplicateEmail) {
			msg = "An account with this email already exists."
		}
		in.Password = ""
		h.render(c, status, "register.html", gin.H{"Title": "Register", "Error": msg, "Form": in})
		return
	}
	h.redirect(c, "/login")
}

// GET /login
func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in"})
}

// POST /login
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	_, err := h.Auth.Login(c.Request.Context(), middleware.Session(c), email, c.PostForm("password"))
	switch {
	case err == nil:
		h.redirect(c, "/")
	case errors.Is(err, services.ErrInvalidCredentials):
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{
			"Title": "Log in",
			"Error": "Invalid email or password.",
			"Email": email,
		})
	default:
		h.fail(c, err)
	}
}

// POST /logout
func (h *Handler) Logout(c *gin.Context) {
	h.Auth.Logout(middleware.Session(c))
	h.redirect(c, "/")
}
