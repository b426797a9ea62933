package routes

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"e_store/internal/cache"
	"e_store/internal/database"
	"e_store/internal/dbx"
	"e_store/internal/handlers"
	"e_store/internal/models"
	"e_store/internal/repositories/products"
	"e_store/internal/repositories/repomanager"
	"e_store/internal/services"
	"e_store/internal/session"
	"e_store/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testSite struct {
	srv     *httptest.Server
	catalog *services.CatalogService
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	dsn := "file:" + filepath.Join(dir, "store.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := database.OpenSQL(ctx, dbx.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := repomanager.NewSQLRepositoryManager(dbx.SQLite)
	require.NoError(t, repos.RunMigrations(ctx, db))

	images, err := storage.NewLocalStore(filepath.Join(dir, "uploads"), "/uploads")
	require.NoError(t, err)

	log := zap.NewNop()
	deps := services.Deps{DB: db, Repos: repos, Log: log}
	catalog := services.NewCatalogService(deps, nil, nil)
	h := &handlers.Handler{
		Auth:           services.NewAuthService(deps),
		Catalog:        catalog,
		Cart:           services.NewCartService(deps),
		Inventory:      services.NewInventoryService(deps, images, nil, nil, false),
		Health:         &database.Connections{SQL: db, Dialect: dbx.SQLite},
		Log:            log,
		MaxUploadBytes: 1 << 20,
	}

	router, err := NewRouter(Options{
		Handler:   h,
		Sessions:  session.NewStore([]byte("0123456789abcdef0123456789abcdef"), time.Hour, false),
		Limiter:   cache.NopLimiter{},
		Log:       log,
		UploadDir: images.Dir(),
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testSite{srv: srv, catalog: catalog}
}

// browser keeps cookies and does not follow redirects.
func (s *testSite) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type page struct {
	status   int
	location string
	body     string
}

func do(t *testing.T, client *http.Client, req *http.Request) page {
	t.Helper()
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return page{status: res.StatusCode, location: res.Header.Get("Location"), body: string(body)}
}

func (s *testSite) get(t *testing.T, client *http.Client, path string) page {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.srv.URL+path, nil)
	require.NoError(t, err)
	return do(t, client, req)
}

func (s *testSite) post(t *testing.T, client *http.Client, path string, form url.Values, header http.Header) page {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range header {
		req.Header[k] = v
	}
	return do(t, client, req)
}

func (s *testSite) addItem(t *testing.T, client *http.Client, fields map[string]string, filename string) page {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("\x89PNG\r\n\x1a\nfake"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/add_item", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return do(t, client, req)
}

func (s *testSite) signUp(t *testing.T, client *http.Client, email, city string) {
	t.Helper()
	res := s.post(t, client, "/register", url.Values{
		"full_name": {"Ada Obi"}, "email": {email}, "password": {"secret"}, "city": {city}, "phone": {"0803"},
	}, nil)
	require.Equal(t, http.StatusFound, res.status)
	require.Equal(t, "/login", res.location)

	res = s.post(t, client, "/login", url.Values{"email": {email}, "password": {"secret"}}, nil)
	require.Equal(t, http.StatusFound, res.status)
	require.Equal(t, "/", res.location)
}

func (s *testSite) onlyProduct(t *testing.T) models.Product {
	t.Helper()
	list, err := s.catalog.List(context.Background(), products.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestLagosSellerAndAnonymousBuyer(t *testing.T) {
	site := newTestSite(t)
	seller := site.browser(t)
	site.signUp(t, seller, "ada@example.com", "Lagos")

	res := site.addItem(t, seller, map[string]string{
		"name": "Ankara fabric", "description": "6 yards", "price": "100", "quantity": "2", "location": "",
	}, "fabric.png")
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/", res.location)

	p := site.onlyProduct(t)
	assert.Equal(t, "Lagos", p.Location)
	assert.Equal(t, "ada@example.com", p.SellerEmail)
	assert.Equal(t, 2, p.Quantity)

	img := site.get(t, seller, p.ImageURL)
	assert.Equal(t, http.StatusOK, img.status)

	productPath := "/product/" + strconv.FormatInt(p.ID, 10)
	buyer := site.browser(t)
	referer := http.Header{"Referer": {"http://elsewhere.example" + productPath + "?ref=home"}}

	for i := 0; i < 3; i++ {
		res = site.post(t, buyer, "/cart/add/"+strconv.FormatInt(p.ID, 10), nil, referer)
		require.Equal(t, http.StatusFound, res.status)
		assert.Equal(t, productPath+"?added=true&ref=home", res.location)
	}

	cart := site.get(t, buyer, "/cart")
	require.Equal(t, http.StatusOK, cart.status)
	assert.Contains(t, cart.body, "Ankara fabric")
	assert.Contains(t, cart.body, "<td>2</td>")
	assert.Contains(t, cart.body, "200.00")
	assert.Contains(t, cart.body, "Total (2 items)")

	// The seller's own cart is a different one.
	sellerCart := site.get(t, seller, "/cart")
	assert.Contains(t, sellerCart.body, "Your cart is empty.")
}

func TestAccessRules(t *testing.T) {
	site := newTestSite(t)
	anon := site.browser(t)

	res := site.get(t, anon, "/info")
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.location)

	res = site.get(t, anon, "/add_item")
	assert.Equal(t, http.StatusFound, res.status)

	res = site.addItem(t, anon, map[string]string{"name": "x", "price": "1", "quantity": "1"}, "x.png")
	assert.Equal(t, http.StatusForbidden, res.status)

	res = site.post(t, anon, "/delete_account", nil, nil)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = site.post(t, anon, "/product/remove/1", nil, nil)
	assert.Equal(t, http.StatusForbidden, res.status)
}

func TestFormErrors(t *testing.T) {
	site := newTestSite(t)
	client := site.browser(t)
	site.signUp(t, client, "ada@example.com", "Lagos")

	res := site.post(t, client, "/register", url.Values{
		"full_name": {"Someone Else"}, "email": {"ada@example.com"}, "password": {"other"}, "city": {"Abuja"}, "phone": {"1"},
	}, nil)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Contains(t, res.body, "already exists")

	res = site.post(t, client, "/register", url.Values{"email": {"new@example.com"}}, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = site.post(t, client, "/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Invalid email or password.")

	res = site.get(t, client, "/?min_price=abc")
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Contains(t, res.body, "min_price")

	res = site.get(t, client, "/?min_price=10&max_price=5")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "No products found.")

	res = site.addItem(t, client, map[string]string{"name": "Bag", "price": "-1", "quantity": "1"}, "bag.png")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = site.addItem(t, client, map[string]string{"name": "Bag", "price": "10", "quantity": "1"}, "bag.exe")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = site.addItem(t, client, map[string]string{"name": "Bag", "price": "10", "quantity": "1"}, "")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = site.get(t, client, "/product/abc")
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = site.get(t, client, "/product/999")
	assert.Equal(t, http.StatusNotFound, res.status)

	res = site.post(t, client, "/cart/remove/999", nil, nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = site.get(t, client, "/no/such/page")
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestSellerLifecycle(t *testing.T) {
	site := newTestSite(t)
	seller := site.browser(t)
	site.signUp(t, seller, "ada@example.com", "Lagos")

	res := site.addItem(t, seller, map[string]string{
		"name": "Lamp", "price": "25.50", "quantity": "3", "location": "Ibadan",
	}, "lamp.jpg")
	require.Equal(t, http.StatusFound, res.status)
	p := site.onlyProduct(t)
	assert.Equal(t, "Ibadan", p.Location)
	id := strconv.FormatInt(p.ID, 10)

	info := site.get(t, seller, "/info")
	require.Equal(t, http.StatusOK, info.status)
	assert.Contains(t, info.body, "Lamp")
	assert.Contains(t, info.body, "25.50")

	res = site.post(t, seller, "/product/update_quantity/"+id, url.Values{"quantity": {"7"}}, nil)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/info", res.location)

	detail := site.get(t, seller, "/product/"+id)
	assert.Contains(t, detail.body, "7 in stock")

	res = site.post(t, seller, "/product/update_quantity/"+id, url.Values{"quantity": {"lots"}}, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	// Another signed-in user cannot remove the listing.
	other := site.browser(t)
	site.signUp(t, other, "bola@example.com", "Abuja")
	res = site.post(t, other, "/product/remove/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, res.status)

	res = site.post(t, seller, "/delete_account", nil, nil)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/", res.location)

	home := site.get(t, seller, "/")
	assert.Contains(t, home.body, "No products found.")
	assert.Contains(t, home.body, "Log in")

	res = site.post(t, seller, "/login", url.Values{"email": {"ada@example.com"}, "password": {"secret"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
}

func TestUpdateQuantity_AnonymousNewQuantityForm(t *testing.T) {
	site := newTestSite(t)
	seller := site.browser(t)
	site.signUp(t, seller, "ada@example.com", "Lagos")
	res := site.addItem(t, seller, map[string]string{"name": "Stool", "price": "15", "quantity": "2"}, "stool.webp")
	require.Equal(t, http.StatusFound, res.status)
	p := site.onlyProduct(t)
	id := strconv.FormatInt(p.ID, 10)

	anon := site.browser(t)
	res = site.post(t, anon, "/product/update_quantity/"+id, url.Values{"new_quantity": {"7"}}, nil)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/info", res.location)
	assert.Equal(t, 7, site.onlyProduct(t).Quantity)

	// new_quantity wins when both fields are sent.
	res = site.post(t, anon, "/product/update_quantity/"+id, url.Values{"new_quantity": {"4"}, "quantity": {"9"}}, nil)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, 4, site.onlyProduct(t).Quantity)

	res = site.post(t, anon, "/product/update_quantity/"+id, url.Values{"new_quantity": {"-1"}}, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, 4, site.onlyProduct(t).Quantity)

	res = site.post(t, anon, "/product/update_quantity/999", url.Values{"new_quantity": {"1"}}, nil)
	assert.Equal(t, http.StatusNotFound, res.status)
}

func TestLogoutStartsNewCart(t *testing.T) {
	site := newTestSite(t)
	seller := site.browser(t)
	site.signUp(t, seller, "ada@example.com", "Lagos")
	res := site.addItem(t, seller, map[string]string{"name": "Mug", "price": "4", "quantity": "5"}, "mug.gif")
	require.Equal(t, http.StatusFound, res.status)
	p := site.onlyProduct(t)

	res = site.post(t, seller, "/cart/add/"+strconv.FormatInt(p.ID, 10), nil, nil)
	require.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/?added=true", res.location)
	assert.Contains(t, site.get(t, seller, "/cart").body, "Mug")

	res = site.post(t, seller, "/logout", nil, nil)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Contains(t, site.get(t, seller, "/cart").body, "Your cart is empty.")
}

func TestHealthzAndStatic(t *testing.T) {
	site := newTestSite(t)
	client := site.browser(t)

	res := site.get(t, client, "/healthz")
	assert.Equal(t, http.StatusOK, res.status)
	assert.JSONEq(t, `{"status":"ok","db":"up"}`, res.body)

	res = site.get(t, client, "/static/style.css")
	assert.Equal(t, http.StatusOK, res.status)
}
