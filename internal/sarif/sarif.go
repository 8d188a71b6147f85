package sarif

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/scan-io-git/scanio-findings/internal/git"
	"github.com/scan-io-git/scanio-findings/internal/models"
)

const (
	ToolName           = "scanio-findings"
	ToolInformationURI = "https://github.com/scan-io-git/scanio-findings"
)

// Report wraps a SARIF report built from synchronized findings.
type Report struct {
	*sarif.Report
	logger hclog.Logger
}

// ToSarifLevel maps a finding severity to a SARIF level.
func ToSarifLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	case models.SeverityLow:
		return "note"
	default:
		return "none"
	}
}

// FromFindings builds a SARIF 2.1.0 report with one rule per distinct finding
// name. meta adds version control provenance when it carries a remote URL.
func FromFindings(findings []models.Finding, meta *git.RepositoryMetadata, version string, logger hclog.Logger) (*Report, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(ToolName, ToolInformationURI)
	if version != "" {
		v := version
		run.Tool.Driver.Version = &v
	}

	rules := make(map[string]*sarif.ReportingDescriptor)
	for _, f := range findings {
		rule, ok := rules[f.Name]
		if !ok {
			rule = run.AddRule(f.Name).
				WithDescription(f.Name).
				WithDefaultConfiguration(&sarif.ReportingConfiguration{Level: ToSarifLevel(f.Severity)})
			rules[f.Name] = rule
		}

		result := sarif.NewRuleResult(rule.ID).
			WithMessage(sarif.NewTextMessage(f.Name)).
			WithLevel(ToSarifLevel(f.Severity))
		if f.FilePath != "" {
			region := sarif.NewRegion()
			if f.Line != nil {
				region = region.WithStartLine(*f.Line)
			}
			result = result.WithLocations([]*sarif.Location{
				sarif.NewLocation().WithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewArtifactLocation().WithUri(f.FilePath)).
						WithRegion(region),
				),
			})
		}

		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("findingId", f.ID)
		result.Add("severity", f.Severity.String())
		result.Add("triageStatus", f.TriageStatus.String())
		result.Add("product", f.Product)
		if len(f.Tags) > 0 {
			result.Add("tags", append([]string(nil), f.Tags...))
		}
		if f.FindingURL != "" {
			result.Add("url", f.FindingURL)
		}
		run.AddResult(result)
	}

	if meta != nil && meta.RemoteURL != nil {
		run.VersionControlProvenance = append(run.VersionControlProvenance, &sarif.VersionControlDetails{
			RepositoryURI: meta.RemoteURL,
			RevisionID:    meta.CommitHash,
			Branch:        meta.BranchName,
		})
	}

	report.AddRun(run)
	logger.Debug("built SARIF report", "rules", len(rules), "results", len(findings))
	return &Report{Report: report, logger: logger}, nil
}

// CollectSeverityInfo counts results per SARIF level.
func (r Report) CollectSeverityInfo() map[string]int {
	info := map[string]int{"error": 0, "warning": 0, "note": 0, "none": 0, "total": 0}
	for _, run := range r.Runs {
		for _, result := range run.Results {
			if result.Level != nil {
				info[*result.Level]++
			}
			info["total"]++
		}
	}
	return info
}

// SortResultsByLevel orders results error, warning, note, none. The sort is
// stable so equal levels keep the server order.
func (r Report) SortResultsByLevel() {
	levelOrder := map[string]int{"error": 0, "warning": 1, "note": 2, "none": 3}
	level := func(res *sarif.Result) int {
		if res.Level == nil {
			return len(levelOrder)
		}
		if n, ok := levelOrder[*res.Level]; ok {
			return n
		}
		return len(levelOrder)
	}
	for _, run := range r.Runs {
		sort.SliceStable(run.Results, func(i, j int) bool {
			return level(run.Results[i]) < level(run.Results[j])
		})
	}
}

// Write writes the report as indented JSON.
func (r Report) Write(w io.Writer) error {
	return r.PrettyWrite(w)
}

// WriteFile writes the report to path.
func (r Report) WriteFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("error writing SARIF report: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := r.Write(file); err != nil {
		return err
	}
	r.logger.Info("SARIF report written", "path", path)
	return nil
}
