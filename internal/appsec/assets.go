package appsec

import (
	"context"
	"strconv"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

// AssetQuery filters the product asset search.
type AssetQuery struct {
	Search string
	Type   models.AssetType
}

// SearchAssets returns the first page of assets matching the query.
func (c *Client) SearchAssets(ctx context.Context, q AssetQuery) (*models.Page[models.Asset], error) {
	req, url, err := c.request(ctx, "product-assets")
	if err != nil {
		return nil, err
	}

	c.logger.Debug("requesting assets", "search", q.Search, "type", int(q.Type))

	var result models.Page[models.Asset]
	resp, err := req.
		SetQueryParams(map[string]string{
			"search":     q.Search,
			"asset_type": strconv.Itoa(int(q.Type)),
		}).
		SetResult(&result).
		Get(url)
	if err := c.check("search assets", resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}
