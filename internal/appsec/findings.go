package appsec

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// DefaultOrdering sorts findings by descending severity.
	DefaultOrdering = "-severity"

	// MaxPages bounds FetchAllPages against a server that always reports a next page.
	MaxPages = 1000
)

// FindingsQuery holds the filter criteria of a findings search.
type FindingsQuery struct {
	Search         string
	Product        int64
	Severities     []models.Severity
	TriageStatuses []models.TriageStatus
	// AssetsIn maps a group key to identifiers matched as one logical OR.
	AssetsIn map[string][]string
	Ordering string
}

// Params renders the query as request parameters for the given page.
func (q FindingsQuery) Params(page int) (map[string]string, error) {
	params := map[string]string{
		"ordering": DefaultOrdering,
	}
	if q.Ordering != "" {
		params["ordering"] = q.Ordering
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	if q.Product != 0 {
		params["product"] = strconv.FormatInt(q.Product, 10)
	}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if len(q.Severities) > 0 {
		parts := make([]string, len(q.Severities))
		for i, s := range q.Severities {
			parts[i] = strconv.Itoa(int(s))
		}
		params["severity__in"] = strings.Join(parts, ",")
	}
	if len(q.TriageStatuses) > 0 {
		parts := make([]string, len(q.TriageStatuses))
		for i, s := range q.TriageStatuses {
			parts[i] = strconv.Itoa(int(s))
		}
		params["triage_status__in"] = strings.Join(parts, ",")
	}
	if len(q.AssetsIn) > 0 {
		encoded, err := json.Marshal(q.AssetsIn)
		if err != nil {
			return nil, fmt.Errorf("failed to encode assets__in: %w", err)
		}
		params["assets__in"] = string(encoded)
	}
	return params, nil
}

// SearchFindings fetches a single page of findings. Pages are numbered from 1.
func (c *Client) SearchFindings(ctx context.Context, q FindingsQuery, page int) (*models.Page[models.Finding], error) {
	params, err := q.Params(page)
	if err != nil {
		return nil, err
	}
	req, url, err := c.request(ctx, "findings")
	if err != nil {
		return nil, err
	}

	c.logger.Debug("requesting findings", "page", page, "params", params)

	var result models.Page[models.Finding]
	resp, err := req.
		SetQueryParams(params).
		SetResult(&result).
		Get(url)
	if err := c.check("search findings", resp, err); err != nil {
		return nil, err
	}

	c.logger.Debug("received findings page", "page", page, "items", len(result.Results), "count", result.Count, "has_next", result.HasNextPage())
	return &result, nil
}

// FetchAllPages walks pages starting at 1 until the server signals no next page or
// maxItems findings were collected; the last page is truncated to fit. maxItems <= 0
// disables the cap. At most MaxPages pages are requested.
func (c *Client) FetchAllPages(ctx context.Context, q FindingsQuery, maxItems int) ([]models.Finding, error) {
	var all []models.Finding

	for page := 1; ; page++ {
		if page > MaxPages {
			c.logger.Warn("page limit reached, stopping pagination", "pages", MaxPages, "collected", len(all))
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := c.SearchFindings(ctx, q, page)
		if err != nil {
			return nil, err
		}
		all = append(all, result.Results...)

		if maxItems > 0 && len(all) >= maxItems {
			if len(all) > maxItems {
				all = all[:maxItems]
			}
			c.logger.Info("reached maximum findings limit", "max", maxItems)
			break
		}
		if !result.HasNextPage() {
			break
		}
		if len(result.Results) == 0 {
			c.logger.Warn("server reported a next page after an empty page, stopping", "page", page)
			break
		}
	}

	return all, nil
}

type setStatusRequest struct {
	TriageStatus models.TriageStatus `json:"current_sla_level"`
	Comment      string              `json:"comment,omitempty"`
}

// SetTriageStatus changes the triage status of a finding.
func (c *Client) SetTriageStatus(ctx context.Context, findingID int64, status models.TriageStatus, comment string) error {
	req, url, err := c.request(ctx, fmt.Sprintf("findings/%d", findingID))
	if err != nil {
		return err
	}

	c.logger.Info("setting finding status", "finding", findingID, "status", status.String())
	resp, err := req.
		SetBody(setStatusRequest{TriageStatus: status, Comment: comment}).
		Patch(url)
	return c.check("set triage status", resp, err)
}

type tagRequest struct {
	Name string `json:"name"`
}

// AddTag attaches a tag to a finding.
func (c *Client) AddTag(ctx context.Context, findingID int64, tag string) error {
	req, url, err := c.request(ctx, fmt.Sprintf("findings/%d/tags/add", findingID))
	if err != nil {
		return err
	}

	c.logger.Info("adding tag to finding", "finding", findingID, "tag", tag)
	resp, err := req.
		SetBody(tagRequest{Name: tag}).
		Post(url)
	return c.check("add tag", resp, err)
}
