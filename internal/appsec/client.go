package appsec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-findings/internal/config"
)

const apiBasePath = "/api/v1/"

// ErrNotConfigured is returned before any I/O when the endpoint URL or token is missing.
var ErrNotConfigured = errors.New("API URL or token is not configured")

// EndpointSource supplies the current endpoint. It is consulted on every request,
// so a reconfigured endpoint takes effect without rebuilding the client.
type EndpointSource interface {
	Endpoint() config.Endpoint
}

// APIError is a non-2xx reply from the findings API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: unexpected HTTP status %d", e.Op, e.StatusCode)
}

// Client talks to the findings API. It is stateless apart from its transport and
// performs no retries of its own.
type Client struct {
	httpc    *resty.Client
	endpoint EndpointSource
	logger   hclog.Logger
}

// New creates a Client on top of a configured resty client.
func New(httpc *resty.Client, endpoint EndpointSource, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		httpc:    httpc,
		endpoint: endpoint,
		logger:   logger.Named("appsec-client"),
	}
}

// Path builds the API path for endpoint, e.g. "findings" -> "/api/v1/findings/".
func Path(endpoint string) string {
	return apiBasePath + strings.Trim(endpoint, "/") + "/"
}

// request prepares an authenticated request and the absolute URL for endpoint.
func (c *Client) request(ctx context.Context, endpoint string) (*resty.Request, string, error) {
	ep := c.endpoint.Endpoint()
	base := strings.TrimRight(strings.TrimSpace(ep.URL), "/")
	token := strings.TrimSpace(ep.Token)
	if base == "" || token == "" {
		c.logger.Warn("API URL or token is not configured")
		return nil, "", ErrNotConfigured
	}

	req := c.httpc.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Token %s", token)).
		SetHeader("Accept", "application/json")
	return req, base + Path(endpoint), nil
}

// check converts a transport error or non-success reply into an error.
func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsSuccess() {
		body := resp.String()
		c.logger.Warn("request failed", "op", op, "status", resp.StatusCode(), "body", truncate(body, 512))
		return &APIError{Op: op, StatusCode: resp.StatusCode(), Body: body}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
