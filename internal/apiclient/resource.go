package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// Resource is a typed client for one backend collection such as /products.
type Resource[T any] struct {
	client *Client
	path   string
}

// NewResource binds a collection path to the client.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{client: c, path: "/" + strings.Trim(path, "/")}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string { return r.path }

// List fetches one page of the collection.
func (r *Resource[T]) List(ctx context.Context, q models.ListQuery) (models.Page[T], error) {
	var items []T
	pagination, err := r.client.Do(ctx, Request{Method: http.MethodGet, Path: r.path, Query: listValues(q)}, &items)
	if err != nil {
		return models.Page[T]{}, err
	}
	return buildPage(items, pagination, q), nil
}

// Get loads one record.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	_, err := r.client.Do(ctx, Request{Method: http.MethodGet, Path: r.item(id)}, &out)
	return out, err
}

// Create posts a new record and returns the backend's copy.
func (r *Resource[T]) Create(ctx context.Context, body interface{}) (T, error) {
	var out T
	_, err := r.client.Do(ctx, Request{Method: http.MethodPost, Path: r.path, Body: body}, &out)
	return out, err
}

// Update replaces the editable fields of a record.
func (r *Resource[T]) Update(ctx context.Context, id string, body interface{}) (T, error) {
	var out T
	_, err := r.client.Do(ctx, Request{Method: http.MethodPut, Path: r.item(id), Body: body}, &out)
	return out, err
}

// Delete removes a record.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.client.Do(ctx, Request{Method: http.MethodDelete, Path: r.item(id)}, nil)
	return err
}

// Action calls a record sub-endpoint such as PATCH /products/{id}/status and
// decodes the updated record.
func (r *Resource[T]) Action(ctx context.Context, method, id, action string, body interface{}) (T, error) {
	var out T
	_, err := r.client.Do(ctx, Request{Method: method, Path: r.item(id) + "/" + strings.Trim(action, "/"), Body: body}, &out)
	return out, err
}

// SetStatus is the common status-toggle action.
func (r *Resource[T]) SetStatus(ctx context.Context, id string, change models.StatusChange) (T, error) {
	return r.Action(ctx, http.MethodPatch, id, "status", change)
}

func (r *Resource[T]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func listValues(q models.ListQuery) url.Values {
	values := url.Values{}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("limit", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	for k, v := range q.Filters {
		if v != "" {
			values.Set(k, v)
		}
	}
	return values
}

func buildPage[T any](items []T, p *models.Pagination, q models.ListQuery) models.Page[T] {
	if items == nil {
		items = []T{}
	}
	page := models.Page[T]{Items: items, Page: q.Page, PageSize: q.PageSize, TotalCount: len(items), TotalPages: 1}
	if p != nil {
		if p.Page > 0 {
			page.Page = p.Page
		}
		if p.PageSize > 0 {
			page.PageSize = p.PageSize
		}
		page.TotalCount = p.TotalCount
		page.TotalPages = p.TotalPages
	}
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.TotalPages <= 0 {
		page.TotalPages = 1
		if page.PageSize > 0 && page.TotalCount > page.PageSize {
			page.TotalPages = (page.TotalCount + page.PageSize - 1) / page.PageSize
		}
	}
	return page
}
