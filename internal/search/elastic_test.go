package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"e_store/internal/models"
)

type recorded struct {
	method, path string
	body         string
}

// fakeElastic answers like a single Elasticsearch node and records requests.
func fakeElastic(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*ElasticIndex, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handle(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticClient(srv.URL, "", "")
	require.NoError(t, err)
	return NewElasticIndex(client, ""), &reqs
}

func TestIndexProduct(t *testing.T) {
	idx, reqs := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	err := idx.IndexProduct(context.Background(), &models.Product{
		ID: 12, Name: "Lamp", Description: "Brass lamp", Location: "Lagos",
		Price: decimal.RequireFromString("12.5"), CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/products/_doc/12", got.path)

	var doc map[string]string
	require.NoError(t, json.Unmarshal([]byte(got.body), &doc))
	assert.Equal(t, "Lamp", doc["name"])
	assert.Equal(t, "12.50", doc["price"])
	assert.Equal(t, "2026-01-02T03:04:05Z", doc["created_at"])
}

func TestIndexProduct_ErrorStatus(t *testing.T) {
	idx, _ := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"mapper_parsing_exception"}`))
	})

	err := idx.IndexProduct(context.Background(), &models.Product{ID: 1})
	assert.Error(t, err)
}

func TestDeleteProducts_IgnoresMissing(t *testing.T) {
	idx, reqs := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/2") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"result":"not_found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"result":"deleted"}`))
	})

	require.NoError(t, idx.DeleteProducts(context.Background(), 1, 2))
	require.Len(t, *reqs, 2)
	assert.Equal(t, http.MethodDelete, (*reqs)[0].method)
	assert.Equal(t, "/products/_doc/1", (*reqs)[0].path)
}

func TestSearch(t *testing.T) {
	idx, reqs := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"hits":[{"_id":"9"},{"_id":"bogus"},{"_id":"3"}]}}`))
	})

	ids, err := idx.Search(context.Background(), "lamp", 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 3}, ids)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/products/_search", (*reqs)[0].path)
	assert.Contains(t, (*reqs)[0].body, `"multi_match"`)
	assert.Contains(t, (*reqs)[0].body, `"lamp"`)
}

func TestSearch_ErrorStatus(t *testing.T) {
	idx, _ := fakeElastic(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"index_not_found_exception"}`))
	})

	_, err := idx.Search(context.Background(), "lamp", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index_not_found_exception")
}

func TestNopIndex(t *testing.T) {
	_, err := NopIndex{}.Search(context.Background(), "x", 1)
	assert.ErrorIs(t, err, ErrDisabled)
}
