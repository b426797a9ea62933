package carts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"e_store/internal/common"
	"e_store/internal/dbx"
	"e_store/internal/models"
)

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

func (r *SQLRepository) Ensure(ctx context.Context, cartID string, now time.Time) error {
	query := `INSERT INTO carts (id, created_at) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), cartID, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Lock(ctx context.Context, cartID string) error {
	query := `SELECT id FROM carts WHERE id = ?` + r.dialect.ForUpdate()

	var id string
	if err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), cartID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) FindItemByProduct(ctx context.Context, cartID string, productID int64) (*models.CartItem, error) {
	query := `SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = ? AND product_id = ?`
	return r.getItem(ctx, query, cartID, productID)
}

func (r *SQLRepository) GetItem(ctx context.Context, cartID string, itemID int64) (*models.CartItem, error) {
	query := `SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id = ? AND id = ?`
	return r.getItem(ctx, query, cartID, itemID)
}

func (r *SQLRepository) getItem(ctx context.Context, query string, args ...any) (*models.CartItem, error) {
	item := &models.CartItem{}
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...).
		Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *SQLRepository) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	query := `INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, ?) RETURNING id`

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), item.CartID, item.ProductID, item.Quantity).Scan(&item.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

func (r *SQLRepository) SetItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	return r.execOne(ctx, `UPDATE cart_items SET quantity = ? WHERE id = ?`, quantity, itemID)
}

func (r *SQLRepository) DeleteItem(ctx context.Context, itemID int64) error {
	return r.execOne(ctx, `DELETE FROM cart_items WHERE id = ?`, itemID)
}

func (r *SQLRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// ListLines joins items to their products. Items whose product is gone are
// skipped by the inner join.
func (r *SQLRepository) ListLines(ctx context.Context, cartID string) ([]models.CartLine, error) {
	query :=
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity,
		        p.id, p.owner_id, p.name, p.description, p.price, p.quantity, p.image_url, p.image_key,
		        p.location, p.seller_name, p.seller_email, p.seller_phone, p.created_at
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = ?
		 ORDER BY ci.id`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), cartID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var (
			it models.CartItem
			p  models.Product
		)
		err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity,
			&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Price, &p.Quantity, &p.ImageURL, &p.ImageKey,
			&p.Location, &p.SellerName, &p.SellerEmail, &p.SellerPhone, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		lines = append(lines, models.CartLine{
			Item:    it,
			Product: p,
			Cost:    p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return lines, nil
}
