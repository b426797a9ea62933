package products

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"e_store/internal/common"
	"e_store/internal/dbx"
	"e_store/internal/models"
)

const productColumns = `id, owner_id, name, description, price, quantity, image_url, image_key,
		location, seller_name, seller_email, seller_phone, created_at`

const listOrder = ` ORDER BY created_at DESC, id DESC`

type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(s rowScanner) (models.Product, error) {
	var p models.Product
	err := s.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Price, &p.Quantity,
		&p.ImageURL, &p.ImageKey, &p.Location, &p.SellerName, &p.SellerEmail, &p.SellerPhone, &p.CreatedAt)
	return p, err
}

func (r *SQLRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	query :=
		`INSERT INTO products (owner_id, name, description, price, quantity, image_url, image_key,
		 location, seller_name, seller_email, seller_phone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query),
		p.OwnerID, p.Name, p.Description, p.Price.String(), p.Quantity, p.ImageURL, p.ImageKey,
		p.Location, p.SellerName, p.SellerEmail, p.SellerPhone, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	p, err := scanProduct(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &p, nil
}

// List applies every supplied filter with AND. A min price above the max
// price simply matches nothing.
func (r *SQLRepository) List(ctx context.Context, f Filter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.City != "" {
		where = append(where, "location = ?")
		args = append(args, f.City)
	}
	if f.Search != "" {
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	if f.MinPrice != nil {
		where = append(where, "price >= ?")
		args = append(args, f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		where = append(where, "price <= ?")
		args = append(args, f.MaxPrice.String())
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += listOrder

	return r.query(ctx, query, args...)
}

func (r *SQLRepository) ListByOwner(ctx context.Context, ownerID int64) ([]models.Product, error) {
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = ?`+listOrder, ownerID)
}

func (r *SQLRepository) ListByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return r.query(ctx, `SELECT `+productColumns+` FROM products WHERE id IN (`+placeholders+`)`+listOrder, args...)
}

func (r *SQLRepository) UpdateQuantity(ctx context.Context, id int64, quantity int) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`UPDATE products SET quantity = ? WHERE id = ?`), quantity, id)
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

// DeleteOwned removes the product only when ownerID owns it. Missing and
// foreign products are indistinguishable to the caller.
func (r *SQLRepository) DeleteOwned(ctx context.Context, id, ownerID int64) (Removed, error) {
	query := `DELETE FROM products WHERE id = ? AND owner_id = ? RETURNING id, image_key`

	var rm Removed
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), id, ownerID).Scan(&rm.ID, &rm.ImageKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Removed{}, common.ErrNotFound
		}
		return Removed{}, fmt.Errorf("db error: %w", err)
	}
	return rm, nil
}

func (r *SQLRepository) DeleteByOwner(ctx context.Context, ownerID int64) ([]Removed, error) {
	rows, err := r.db.QueryContext(ctx,
		r.dialect.Rebind(`DELETE FROM products WHERE owner_id = ? RETURNING id, image_key`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var removed []Removed
	for rows.Next() {
		var rm Removed
		if err := rows.Scan(&rm.ID, &rm.ImageKey); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		removed = append(removed, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return removed, nil
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var list []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return list, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
