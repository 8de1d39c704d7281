package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/models/dto"
	"github.com/hongminglow/therapy-console/internal/request"
)

// DeviceAPI uses the REST style /admin/device endpoint with query paging.
type DeviceAPI struct {
	r *request.Client
}

// DeviceFilter narrows a device listing. Zero values are ignored.
type DeviceFilter struct {
	PicoNumber string
	Status     *int
}

func (d *DeviceAPI) List(ctx context.Context, params dto.ListParams, filter DeviceFilter) (request.ListResult[models.Device], error) {
	page := params.Page()
	q := url.Values{}
	q.Set("pageNum", strconv.Itoa(page.Current))
	q.Set("pageSize", strconv.Itoa(page.Size))
	if params.OrderByColumn != "" {
		q.Set("orderByColumn", params.OrderByColumn)
		q.Set("isAsc", params.IsAsc)
	}
	if filter.PicoNumber != "" {
		q.Set("picoNumber", filter.PicoNumber)
	}
	if filter.Status != nil {
		q.Set("status", strconv.Itoa(*filter.Status))
	}

	var out request.ListResult[models.Device]
	err := d.r.Get(ctx, PathDevice, q, &out)
	return out, err
}

func (d *DeviceAPI) Add(ctx context.Context, dev models.Device) error {
	return d.r.Post(ctx, PathDevice, dev, nil)
}

func (d *DeviceAPI) Update(ctx context.Context, dev models.Device) error {
	return d.r.Put(ctx, PathDevice, dev, nil)
}

// Delete sends every id as a repeated idList query parameter.
func (d *DeviceAPI) Delete(ctx context.Context, ids []int64) error {
	q := url.Values{}
	for _, id := range ids {
		q.Add("idList", strconv.FormatInt(id, 10))
	}
	return d.r.Delete(ctx, PathDevice, q, nil, nil)
}
