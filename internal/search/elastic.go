// Package search indexes products in Elasticsearch for full-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"e_store/internal/models"
)

const DefaultIndex = "products"

// ErrDisabled is returned by the no-op index so callers fall back to SQL.
var ErrDisabled = errors.New("search disabled")

type Index interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProducts(ctx context.Context, ids ...int64) error
	// Search returns matching product ids, best match first.
	Search(ctx context.Context, query string, limit int) ([]int64, error)
}

func NewElasticClient(url, user, password string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

type ElasticIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticIndex(client *elasticsearch.Client, index string) *ElasticIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &ElasticIndex{client: client, index: index}
}

type document struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Price       string `json:"price"`
	SellerName  string `json:"seller_name"`
	CreatedAt   string `json:"created_at"`
}

func (e *ElasticIndex) IndexProduct(ctx context.Context, p *models.Product) error {
	data, err := json.Marshal(document{
		Name:        p.Name,
		Description: p.Description,
		Location:    p.Location,
		Price:       p.Price.StringFixed(2),
		SellerName:  p.SellerName,
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: strconv.FormatInt(p.ID, 10),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("index product %d: %w", p.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index product %d: %s", p.ID, res.Status())
	}
	return nil
}

func (e *ElasticIndex) DeleteProducts(ctx context.Context, ids ...int64) error {
	var errs []error
	for _, id := range ids {
		req := esapi.DeleteRequest{
			Index:      e.index,
			DocumentID: strconv.FormatInt(id, 10),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, e.client)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete product %d: %w", id, err))
			continue
		}
		if res.IsError() && res.StatusCode != http.StatusNotFound {
			errs = append(errs, fmt.Errorf("delete product %d: %s", id, res.Status()))
		}
		res.Body.Close()
	}
	return errors.Join(errs...)
}

func (e *ElasticIndex) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	var buf bytes.Buffer
	q := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name^2", "description"},
			},
		},
		"_source": false,
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  &buf,
		Size:  &limit,
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("search: %s: %s", res.Status(), body)
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("search: decode: %w", err)
	}

	ids := make([]int64, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type NopIndex struct{}

func (NopIndex) IndexProduct(context.Context, *models.Product) error  { return nil }
func (NopIndex) DeleteProducts(context.Context, ...int64) error       { return nil }
func (NopIndex) Search(context.Context, string, int) ([]int64, error) { return nil, ErrDisabled }
