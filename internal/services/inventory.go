package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"e_store/internal/cache"
	"e_store/internal/common"
	"e_store/internal/dbx"
	"e_store/internal/models"
	"e_store/internal/repositories/products"
	"e_store/internal/search"
	"e_store/internal/storage"
)

var maxPrice = decimal.New(1, 10) // NUMERIC(12,2)

// ProductInput carries the raw listing form.
type ProductInput struct {
	Name        string
	Description string
	Price       string
	Quantity    string
	Location    string
}

type Image struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type InventoryService struct {
	deps         Deps
	images       storage.ImageStore
	cache        cache.ProductCache
	search       search.Index
	requireOwner bool
}

// NewInventoryService builds the seller-side service. With requireOwner set,
// quantity updates are limited to the product's owner.
func NewInventoryService(deps Deps, images storage.ImageStore, c cache.ProductCache, idx search.Index, requireOwner bool) *InventoryService {
	if c == nil {
		c = cache.NopProductCache{}
	}
	if idx == nil {
		idx = search.NopIndex{}
	}
	return &InventoryService{deps: deps, images: images, cache: c, search: idx, requireOwner: requireOwner}
}

func (in ProductInput) parse() (name string, price decimal.Decimal, qty int, err error) {
	name = strings.TrimSpace(in.Name)
	if name == "" {
		return "", price, 0, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	price, err = decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return "", price, 0, fmt.Errorf("%w: price must be a number", ErrInvalidInput)
	}
	if price.IsNegative() || price.GreaterThanOrEqual(maxPrice) {
		return "", price, 0, fmt.Errorf("%w: price out of range", ErrInvalidInput)
	}

	qty, err = strconv.Atoi(strings.TrimSpace(in.Quantity))
	if err != nil {
		return "", price, 0, fmt.Errorf("%w: quantity must be a whole number", ErrInvalidInput)
	}
	if qty < 0 {
		return "", price, 0, fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	return name, price.Round(2), qty, nil
}

// Create lists a product for owner. The image is stored first under a fresh
// key and removed again if the product cannot be saved.
func (s *InventoryService) Create(ctx context.Context, owner *models.User, in ProductInput, img *Image) (*models.Product, error) {
	if owner == nil {
		return nil, ErrNotAuthenticated
	}
	name, price, qty, err := in.parse()
	if err != nil {
		return nil, err
	}
	if img == nil || img.Body == nil || img.Filename == "" {
		return nil, fmt.Errorf("%w: image is required", ErrInvalidInput)
	}

	key, contentType, err := storage.NewObjectKey(img.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	url, err := s.images.Put(ctx, key, img.Body, img.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("error storing image: %w", err)
	}

	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = owner.City
	}

	p, err := s.deps.Repos.Products(s.deps.DB).Create(ctx, &models.Product{
		OwnerID:     owner.ID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       price,
		Quantity:    qty,
		ImageURL:    url,
		ImageKey:    key,
		Location:    location,
		SellerName:  owner.FullName,
		SellerEmail: owner.Email,
		SellerPhone: owner.Phone,
		CreatedAt:   s.deps.now(),
	})
	if err != nil {
		s.removeImage(context.WithoutCancel(ctx), key)
		return nil, fmt.Errorf("error creating product: %w", err)
	}

	if err := s.search.IndexProduct(ctx, p); err != nil {
		s.deps.log().Warn("search indexing failed", zap.Int64("product_id", p.ID), zap.Error(err))
	}
	s.deps.log().Info("product listed", zap.Int64("product_id", p.ID), zap.Int64("owner_id", owner.ID))
	return p, nil
}

// Remove deletes a product owned by owner. A product owned by someone else
// is reported as not found.
func (s *InventoryService) Remove(ctx context.Context, owner *models.User, productID int64) error {
	if owner == nil {
		return ErrNotAuthenticated
	}

	removed, err := s.deps.Repos.Products(s.deps.DB).DeleteOwned(ctx, productID, owner.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("error removing product: %w", err)
	}

	s.cleanup(context.WithoutCancel(ctx), []products.Removed{removed})
	return nil
}

// UpdateQuantity sets the stock level of a product.
func (s *InventoryService) UpdateQuantity(ctx context.Context, actor *models.User, productID int64, qty int) error {
	if qty < 0 {
		return fmt.Errorf("%w: quantity cannot be negative", ErrInvalidInput)
	}
	if s.requireOwner && actor == nil {
		return ErrNotAuthenticated
	}

	err := dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.deps.Repos.Products(tx)

		if s.requireOwner {
			p, err := repo.GetByID(ctx, productID)
			if err != nil {
				return err
			}
			if p.OwnerID != actor.ID {
				return common.ErrNotFound
			}
		}
		return repo.UpdateQuantity(ctx, productID, qty)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("error updating quantity: %w", err)
	}

	if err := s.cache.InvalidateProducts(ctx, productID); err != nil {
		s.deps.log().Warn("product cache invalidation failed", zap.Int64("product_id", productID), zap.Error(err))
	}
	return nil
}

// ListByOwner returns the seller's own listings for the account page.
func (s *InventoryService) ListByOwner(ctx context.Context, owner *models.User) ([]models.Product, error) {
	if owner == nil {
		return nil, ErrNotAuthenticated
	}
	list, err := s.deps.Repos.Products(s.deps.DB).ListByOwner(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	return list, nil
}

// DeleteAccount removes the owner's products and then the account in one
// transaction, and signs the session out once it committed.
func (s *InventoryService) DeleteAccount(ctx context.Context, owner *models.User, sess Session) error {
	if owner == nil {
		return ErrNotAuthenticated
	}

	var removed []products.Removed
	err := dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if removed, err = s.deps.Repos.Products(tx).DeleteByOwner(ctx, owner.ID); err != nil {
			return fmt.Errorf("error removing products: %w", err)
		}
		if err := s.deps.Repos.Users(tx).Delete(ctx, owner.ID); err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("error removing user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sess.Clear()
	s.cleanup(context.WithoutCancel(ctx), removed)
	s.deps.log().Info("account deleted", zap.Int64("user_id", owner.ID), zap.Int("products", len(removed)))
	return nil
}

// cleanup drops what a removed product left outside the database. Failures
// are logged only.
func (s *InventoryService) cleanup(ctx context.Context, removed []products.Removed) {
	if len(removed) == 0 {
		return
	}
	ids := make([]int64, 0, len(removed))
	for _, r := range removed {
		ids = append(ids, r.ID)
		if r.ImageKey != "" {
			s.removeImage(ctx, r.ImageKey)
		}
	}
	if err := s.cache.InvalidateProducts(ctx, ids...); err != nil {
		s.deps.log().Warn("product cache invalidation failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
	if err := s.search.DeleteProducts(ctx, ids...); err != nil {
		s.deps.log().Warn("search delete failed", zap.Int64s("product_ids", ids), zap.Error(err))
	}
}

func (s *InventoryService) removeImage(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		s.deps.log().Warn("image cleanup failed", zap.String("key", key), zap.Error(err))
	}
}
