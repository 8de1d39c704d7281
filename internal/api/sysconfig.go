package api

import (
	"context"

	"github.com/hongminglow/therapy-console/internal/models"
	"github.com/hongminglow/therapy-console/internal/request"
)

// SysConfig fetches the chat assistant speech settings.
func (c *Client) SysConfig(ctx context.Context) (models.SysConfigInfo, error) {
	var out request.DataResult[models.SysConfigInfo]
	err := c.r.Get(ctx, PathSysConfig, nil, &out)
	return out.Data, err
}
