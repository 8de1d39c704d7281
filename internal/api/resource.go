package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/request"
)

// Resource is a CRUD endpoint family following the base/{list,add,update,delete,<id>} layout.
type Resource[T any, ID comparable] struct {
	r    *request.Client
	base string
}

func NewResource[T any, ID comparable](r *request.Client, base string) Resource[T, ID] {
	return Resource[T, ID]{r: r, base: base}
}

// List fetches one page. filter may be nil; its non-empty fields are sent next to "page".
func (res Resource[T, ID]) List(ctx context.Context, page dto.Page, filter *T) (request.ListResult[T], error) {
	var out request.ListResult[T]
	body, err := PageBody(page, filter)
	if err != nil {
		return out, err
	}
	err = res.r.Post(ctx, res.base+"/list", body, &out)
	return out, err
}

// ListWhere is List with free-form exact-match filters.
func (res Resource[T, ID]) ListWhere(ctx context.Context, page dto.Page, filter map[string]string) (request.ListResult[T], error) {
	var out request.ListResult[T]
	body, err := PageBody(page, filter)
	if err != nil {
		return out, err
	}
	err = res.r.Post(ctx, res.base+"/list", body, &out)
	return out, err
}

// Get fetches one record by id.
func (res Resource[T, ID]) Get(ctx context.Context, id ID) (T, error) {
	var out request.DataResult[T]
	err := res.r.Post(ctx, fmt.Sprintf("%s/%v", res.base, id), nil, &out)
	return out.Data, err
}

func (res Resource[T, ID]) Add(ctx context.Context, rec T) error {
	return res.r.Post(ctx, res.base+"/add", rec, nil)
}

func (res Resource[T, ID]) Update(ctx context.Context, rec T) error {
	return res.r.Post(ctx, res.base+"/update", rec, nil)
}

// Delete removes records; the ids travel as a JSON array body.
func (res Resource[T, ID]) Delete(ctx context.Context, ids []ID) error {
	return res.r.Delete(ctx, res.base+"/delete", nil, ids, nil)
}

// PageBody merges paging and filter fields into one JSON object.
func PageBody(page dto.Page, filter any) (map[string]any, error) {
	body := map[string]any{}
	if filter != nil {
		raw, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
		if string(raw) != "null" {
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("filter must be an object: %w", err)
			}
		}
	}
	body["page"] = page.Normalize()
	return body, nil
}
