package products

import (
	"context"

	"github.com/shopspring/decimal"

	"e_store/internal/models"
)

// Filter narrows a catalog listing. Zero values mean "not supplied".
type Filter struct {
	City     string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Removed identifies a deleted product and the image object it referenced.
type Removed struct {
	ID       int64
	ImageKey string
}

type Repository interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, f Filter) ([]models.Product, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	UpdateQuantity(ctx context.Context, id int64, quantity int) error
	DeleteOwned(ctx context.Context, id, ownerID int64) (Removed, error)
	DeleteByOwner(ctx context.Context, ownerID int64) ([]Removed, error)
}
