package carts

import (
	"context"
	"time"

	"e_store/internal/models"
)

type Repository interface {
	// Ensure creates the cart row if it does not exist yet.
	Ensure(ctx context.Context, cartID string, now time.Time) error
	// Lock takes a row lock on the cart for the rest of the transaction.
	Lock(ctx context.Context, cartID string) error
	FindItemByProduct(ctx context.Context, cartID string, productID int64) (*models.CartItem, error)
	GetItem(ctx context.Context, cartID string, itemID int64) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	SetItemQuantity(ctx context.Context, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, itemID int64) error
	ListLines(ctx context.Context, cartID string) ([]models.CartLine, error)
}
