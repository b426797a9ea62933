package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"e_store/internal/database"
	"e_store/internal/dbx"
	"e_store/internal/models"
	"e_store/internal/repositories/repomanager"
)

// newTestDeps returns Deps over a fresh migrated SQLite file.
func newTestDeps(t *testing.T) Deps {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := database.OpenSQL(context.Background(), dbx.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := repomanager.NewSQLRepositoryManager(dbx.SQLite)
	require.NoError(t, repos.RunMigrations(context.Background(), db))

	return Deps{DB: db, Repos: repos, Now: newClock()}
}

// newClock ticks one second per call so creation order is deterministic.
func newClock() func() time.Time {
	var (
		mu sync.Mutex
		t  = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type memSession struct {
	email   string
	cartID  string
	cleared int
}

func (s *memSession) UserEmail() string         { return s.email }
func (s *memSession) SetUserEmail(email string) { s.email = email }
func (s *memSession) CartID() string            { return s.cartID }
func (s *memSession) SetCartID(id string)       { s.cartID = id }
func (s *memSession) Clear() {
	s.email, s.cartID = "", ""
	s.cleared++
}

// memImages is an in-memory image store.
type memImages struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newMemImages() *memImages {
	return &memImages{objects: map[string][]byte{}}
}

func (m *memImages) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return "", errors.New("exists")
	}
	m.objects[key] = data
	return "/uploads/" + key, nil
}

func (m *memImages) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// memCache is an in-memory product cache. beforeSet, when set, runs at the
// start of SetProduct.
type memCache struct {
	products    map[int64]models.Product
	gens        map[int64]int64
	invalidated []int64
	beforeSet   func()
}

func newMemCache() *memCache {
	return &memCache{products: map[int64]models.Product{}, gens: map[int64]int64{}}
}

func (c *memCache) GetProduct(_ context.Context, id int64) (*models.Product, bool) {
	p, ok := c.products[id]
	if !ok {
		return nil, false
	}
	return &p, true
}

func (c *memCache) Generation(_ context.Context, id int64) (int64, error) {
	return c.gens[id], nil
}

func (c *memCache) SetProduct(_ context.Context, p *models.Product, gen int64) error {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	if c.gens[p.ID] != gen {
		return nil
	}
	c.products[p.ID] = *p
	return nil
}

func (c *memCache) InvalidateProducts(_ context.Context, ids ...int64) error {
	for _, id := range ids {
		c.gens[id]++
		delete(c.products, id)
	}
	c.invalidated = append(c.invalidated, ids...)
	return nil
}

// fakeIndex records indexing calls and answers searches with fixed ids.
type fakeIndex struct {
	indexed []int64
	deleted []int64
	hits    []int64
	err     error
}

func (f *fakeIndex) IndexProduct(_ context.Context, p *models.Product) error {
	f.indexed = append(f.indexed, p.ID)
	return nil
}

func (f *fakeIndex) DeleteProducts(_ context.Context, ids ...int64) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]int64, error) {
	return f.hits, f.err
}

func mustRegister(t *testing.T, deps Deps, email, city string) *models.User {
	t.Helper()
	u, err := NewAuthService(deps).Register(context.Background(), RegisterInput{
		FullName: "User " + email, Email: email, Password: "pw-" + email, City: city, Phone: "0800",
	})
	require.NoError(t, err)
	return u
}

// mustProduct inserts a product directly, bypassing image upload.
func mustProduct(t *testing.T, deps Deps, owner *models.User, name, price string, qty int, location string) *models.Product {
	t.Helper()
	p, err := deps.Repos.Products(deps.DB).Create(context.Background(), &models.Product{
		OwnerID:     owner.ID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
		Location:    location,
		SellerName:  owner.FullName,
		SellerEmail: owner.Email,
		SellerPhone: owner.Phone,
		CreatedAt:   deps.now(),
	})
	require.NoError(t, err)
	return p
}
