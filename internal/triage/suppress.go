package triage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/scanio-findings/internal/appsec"
	"github.com/scan-io-git/scanio-findings/internal/models"
)

// RulesAPI reads and creates auto-validator rules.
type RulesAPI interface {
	ListRules(ctx context.Context, q appsec.RuleQuery) (*appsec.RulesPage, error)
	CreateRule(ctx context.Context, rule appsec.RuleRequest) (*appsec.Rule, error)
}

// SuppressResult is the outcome of RejectForever: either a created rule or
// the number of existing rules that already cover the finding.
type SuppressResult struct {
	Created       *appsec.Rule
	ExistingRules int
	Query         appsec.RuleQuery
}

// Suppressor creates rules that reject future findings with the same name and path.
type Suppressor struct {
	api    RulesAPI
	email  EmailSource
	logger hclog.Logger
}

// NewSuppressor creates a Suppressor. email may be nil.
func NewSuppressor(api RulesAPI, email EmailSource, logger hclog.Logger) *Suppressor {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Suppressor{api: api, email: email, logger: logger.Named("suppress")}
}

// RejectForever creates a reject rule for the finding unless a matching rule
// already exists. A failed lookup does not prevent creation.
func (s *Suppressor) RejectForever(ctx context.Context, f models.Finding) (SuppressResult, error) {
	query := appsec.RuleQuery{
		ActionChoices: appsec.ActionReject,
		Search:        fmt.Sprintf(`"%s" "%s"`, f.Name, f.FilePath),
	}
	result := SuppressResult{Query: query}

	page, err := s.api.ListRules(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		s.logger.Warn("failed to check existing rules", "id", f.ID, "error", err)
	} else if n := countMatching(page.Results, f); n > 0 {
		s.logger.Info("existing rules cover the finding", "id", f.ID, "rules", n)
		result.ExistingRules = n
		return result, nil
	}

	tags := []string{RejectedTag}
	if s.email != nil {
		if email, ok := s.email.CommitterEmail(); ok {
			tags = append(tags, email)
		}
	}

	rule, err := s.api.CreateRule(ctx, appsec.RuleRequest{
		IsActive:         true,
		ActionChoices:    appsec.ActionReject,
		Instructions:     instructionsFor(f),
		Tags:             tags,
		Groups:           []string{},
		AllowAllProducts: true,
	})
	if err != nil {
		return result, fmt.Errorf("failed to create rule for finding %d: %w", f.ID, err)
	}
	s.logger.Info("created reject rule", "id", f.ID, "rule", rule.ID)
	result.Created = rule
	return result, nil
}

func instructionsFor(f models.Finding) []appsec.RuleInstruction {
	instructions := []appsec.RuleInstruction{{Field: appsec.FieldFindingName, Value: f.Name}}
	if f.FilePath != "" {
		instructions = append(instructions, appsec.RuleInstruction{Field: appsec.FieldFindingFilePath, Value: f.FilePath})
	}
	return instructions
}

// countMatching counts rules matching the finding name and, when the finding
// has one, its file path.
func countMatching(rules []appsec.Rule, f models.Finding) int {
	n := 0
	for _, rule := range rules {
		if hasInstruction(rule, appsec.FieldFindingName, f.Name) &&
			(f.FilePath == "" || hasInstruction(rule, appsec.FieldFindingFilePath, f.FilePath)) {
			n++
		}
	}
	return n
}

func hasInstruction(rule appsec.Rule, field, value string) bool {
	for _, in := range rule.Instructions {
		if in.Field == field && in.Value == value {
			return true
		}
	}
	return false
}
