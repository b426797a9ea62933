package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to one browser session; its ID lives in the session cookie.
type Cart struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CartItem holds at most one row per (cart, product).
type CartItem struct {
	ID        int64  `json:"id"`
	CartID    string `json:"cart_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type CartLine struct {
	Item    CartItem        `json:"item"`
	Product Product         `json:"product"`
	Cost    decimal.Decimal `json:"cost"`
}

type CartView struct {
	CartID string          `json:"cart_id"`
	Lines  []CartLine      `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

func (v CartView) Count() int {
	n := 0
	for _, l := range v.Lines {
		n += l.Item.Quantity
	}
	return n
}
