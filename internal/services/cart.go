package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"e_store/internal/common"
	"e_store/internal/dbx"
	"e_store/internal/models"
)

// CartService manages the cart attached to a browser session. Adding never
// reserves stock; it only refuses to go above the product's quantity.
type CartService struct {
	deps Deps
}

func NewCartService(deps Deps) *CartService {
	return &CartService{deps: deps}
}

func (s *CartService) cartID(sess Session) string {
	id := sess.CartID()
	if id == "" {
		id = uuid.NewString()
		sess.SetCartID(id)
	}
	return id
}

// Add puts one more unit of the product in the cart. At the stock limit, or
// for a product with no stock, it is a silent no-op.
func (s *CartService) Add(ctx context.Context, sess Session, productID int64) error {
	cartID := s.cartID(sess)

	return dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		carts := s.deps.Repos.Carts(tx)

		if err := carts.Ensure(ctx, cartID, s.deps.now()); err != nil {
			return fmt.Errorf("error creating cart: %w", err)
		}
		if err := carts.Lock(ctx, cartID); err != nil {
			return fmt.Errorf("error locking cart: %w", err)
		}

		product, err := s.deps.Repos.Products(tx).GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return ErrProductNotFound
			}
			return fmt.Errorf("error loading product: %w", err)
		}

		item, err := carts.FindItemByProduct(ctx, cartID, productID)
		switch {
		case err == nil:
			if item.Quantity >= product.Quantity {
				return nil
			}
			return carts.SetItemQuantity(ctx, item.ID, item.Quantity+1)
		case errors.Is(err, common.ErrNotFound):
			if product.Quantity <= 0 {
				return nil
			}
			_, err = carts.CreateItem(ctx, &models.CartItem{CartID: cartID, ProductID: productID, Quantity: 1})
			return err
		default:
			return fmt.Errorf("error loading cart item: %w", err)
		}
	})
}

// Remove takes one unit of the item out of the cart, deleting the item when
// it was the last one.
func (s *CartService) Remove(ctx context.Context, sess Session, itemID int64) error {
	cartID := sess.CartID()
	if cartID == "" {
		return ErrCartItemNotFound
	}

	return dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		carts := s.deps.Repos.Carts(tx)

		if err := carts.Lock(ctx, cartID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return ErrCartItemNotFound
			}
			return fmt.Errorf("error locking cart: %w", err)
		}

		item, err := carts.GetItem(ctx, cartID, itemID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return ErrCartItemNotFound
			}
			return fmt.Errorf("error loading cart item: %w", err)
		}

		if item.Quantity > 1 {
			return carts.SetItemQuantity(ctx, item.ID, item.Quantity-1)
		}
		return carts.DeleteItem(ctx, item.ID)
	})
}

// View lists the cart lines with their cost and the cart total. A session
// without a cart sees an empty one.
func (s *CartService) View(ctx context.Context, sess Session) (models.CartView, error) {
	view := models.CartView{CartID: sess.CartID(), Total: decimal.Zero}
	if view.CartID == "" {
		return view, nil
	}

	lines, err := s.deps.Repos.Carts(s.deps.DB).ListLines(ctx, view.CartID)
	if err != nil {
		return models.CartView{}, fmt.Errorf("error loading cart: %w", err)
	}

	view.Lines = lines
	for _, l := range lines {
		view.Total = view.Total.Add(l.Cost)
	}
	return view, nil
}
