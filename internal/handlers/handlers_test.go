package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"e_store/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrNotAuthenticated, http.StatusForbidden},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrDuplicateEmail, http.StatusConflict},
		{services.ErrProductNotFound, http.StatusNotFound},
		{services.ErrCartItemNotFound, http.StatusNotFound},
		{services.ErrUserNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: min_price must be a number", services.ErrInvalidFilterValue), http.StatusBadRequest},
		{fmt.Errorf("%w: name is required", services.ErrInvalidInput), http.StatusBadRequest},
		{errInvalidID, http.StatusBadRequest},
		{fmt.Errorf("upload: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge},
		{errors.New("db error: connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestBackWithAdded(t *testing.T) {
	cases := map[string]string{
		"":                                    "/?added=true",
		"http://shop.example/product/7":       "/product/7?added=true",
		"http://shop.example/?city=Lagos":     "/?added=true&city=Lagos",
		"http://shop.example/?added=true":     "/?added=true",
		"http://evil.example//evil.example/x": "/?added=true",
		"/search?q=lamp":                      "/search?added=true&q=lamp",
		"::not a url":                         "/?added=true",
	}
	for in, want := range cases {
		assert.Equal(t, want, backWithAdded(in), in)
	}
}
