package appsec

import (
	"context"
	"strconv"
)

// Auto-validator instruction fields used by suppression rules.
const (
	FieldFindingName     = "Finding__name"
	FieldFindingFilePath = "Finding__file_path"

	// ActionReject auto-rejects matching findings.
	ActionReject = 0
)

// RuleInstruction is a single match condition of an auto-validator rule.
type RuleInstruction struct {
	ID     int64  `json:"id,omitempty"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Negate bool   `json:"negate"`
	Regex  bool   `json:"regex"`
}

// RuleRequest is the body used to create an auto-validator rule.
type RuleRequest struct {
	IsActive                 bool              `json:"is_active"`
	ActionChoices            int               `json:"action_choices"`
	Instructions             []RuleInstruction `json:"instructions"`
	Tags                     []string          `json:"tags"`
	Groups                   []string          `json:"groups"`
	AllowAllProducts         bool              `json:"allow_all_products"`
	IssuesAutoCreateOnVerify *bool             `json:"issues_auto_create_on_verify"`
	AffectedProductsCluster  *string           `json:"affected_products_cluster"`
	ReadOnly                 bool              `json:"read_only"`
}

// Rule is an auto-validator rule as returned by the API.
type Rule struct {
	ID            int64             `json:"id"`
	IsActive      bool              `json:"is_active"`
	ActionChoices int               `json:"action_choices"`
	Instructions  []RuleInstruction `json:"instructions"`
	Tags          []string          `json:"tags"`
	Groups        []string          `json:"groups"`
	ReadOnly      bool              `json:"read_only"`
}

// RulesPage is the paginated rule list. Unlike findings, its links are URLs.
type RulesPage struct {
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
	Current    int     `json:"current"`
	Count      int     `json:"count"`
	PagesCount int     `json:"pages_count"`
	Results    []Rule  `json:"results"`
}

// RuleQuery filters the rule list.
type RuleQuery struct {
	ActionChoices int
	Search        string
}

// ListRules searches existing auto-validator rules.
func (c *Client) ListRules(ctx context.Context, q RuleQuery) (*RulesPage, error) {
	req, url, err := c.request(ctx, "auto-validator/rules")
	if err != nil {
		return nil, err
	}

	c.logger.Debug("requesting auto-validator rules", "search", q.Search)

	var result RulesPage
	resp, err := req.
		SetQueryParams(map[string]string{
			"action_choices": strconv.Itoa(q.ActionChoices),
			"search":         q.Search,
		}).
		SetResult(&result).
		Get(url)
	if err := c.check("list rules", resp, err); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateRule creates an auto-validator rule and returns it.
func (c *Client) CreateRule(ctx context.Context, rule RuleRequest) (*Rule, error) {
	req, url, err := c.request(ctx, "auto-validator/rules")
	if err != nil {
		return nil, err
	}

	c.logger.Info("creating auto-validator rule", "instructions", len(rule.Instructions))

	var created Rule
	resp, err := req.
		SetBody(rule).
		SetResult(&created).
		Post(url)
	if err := c.check("create rule", resp, err); err != nil {
		return nil, err
	}

	c.logger.Info("created auto-validator rule", "id", created.ID)
	return &created, nil
}
