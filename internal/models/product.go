package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisplayTimeLayout is how listing pages show the creation time (day/month hour:minute).
const DisplayTimeLayout = "02/01 15:04"

// Product is a listing. The Seller* fields are a snapshot of the owner taken
// at creation time and are never refreshed; ownership goes through OwnerID.
type Product struct {
	ID          int64           `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	ImageURL    string          `json:"image_url"`
	ImageKey    string          `json:"image_key"`
	Location    string          `json:"location"`
	SellerName  string          `json:"seller_name"`
	SellerEmail string          `json:"seller_email"`
	SellerPhone string          `json:"seller_phone"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p Product) DisplayTime() string {
	return p.CreatedAt.Format(DisplayTimeLayout)
}

func (p Product) InStock() bool {
	return p.Quantity > 0
}
