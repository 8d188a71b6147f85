package sarif

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/git"
	"github.com/scan-io-git/scanio-findings/internal/models"
)

func TestToSarifLevel(t *testing.T) {
	tests := map[models.Severity]string{
		models.SeverityCritical: "error",
		models.SeverityHigh:     "error",
		models.SeverityMedium:   "warning",
		models.SeverityLow:      "note",
		models.SeverityInfo:     "none",
	}
	for sev, want := range tests {
		assert.Equal(t, want, ToSarifLevel(sev), sev.String())
	}
}

func sampleFindings() []models.Finding {
	return []models.Finding{
		{ID: 1, Name: "SQL injection", FilePath: "db/q.go", Line: models.IntPtr(12), Severity: models.SeverityLow, TriageStatus: models.StatusVerified},
		{ID: 2, Name: "Hardcoded secret", FilePath: "cfg.yml", Severity: models.SeverityCritical, Tags: []string{"secrets"}},
		{ID: 3, Name: "SQL injection", FilePath: "db/r.go", Line: models.IntPtr(3), Severity: models.SeverityLow},
		{ID: 4, Name: "Outdated dependency", Severity: models.SeverityMedium},
	}
}

func TestFromFindings(t *testing.T) {
	remote := "git@github.com:acme/widget.git"
	commit := "0123abcd"
	report, err := FromFindings(sampleFindings(), &git.RepositoryMetadata{RemoteURL: &remote, CommitHash: &commit}, "1.2.3", nil)
	require.NoError(t, err)

	require.Len(t, report.Runs, 1)
	run := report.Runs[0]
	assert.Equal(t, ToolName, run.Tool.Driver.Name)
	assert.Len(t, run.Tool.Driver.Rules, 3, "one rule per distinct name")
	require.Len(t, run.Results, 4)

	first := run.Results[0]
	assert.Equal(t, "SQL injection", *first.RuleID)
	assert.Equal(t, "note", *first.Level)
	require.Len(t, first.Locations, 1)
	assert.Equal(t, "db/q.go", *first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 12, *first.Locations[0].PhysicalLocation.Region.StartLine)
	assert.EqualValues(t, 1, first.Properties["findingId"])
	assert.Equal(t, "VERIFIED", first.Properties["triageStatus"])

	assert.Empty(t, run.Results[3].Locations)
	assert.Equal(t, []string{"secrets"}, run.Results[1].Properties["tags"])

	require.Len(t, run.VersionControlProvenance, 1)
	assert.Equal(t, remote, *run.VersionControlProvenance[0].RepositoryURI)

	info := report.CollectSeverityInfo()
	assert.Equal(t, map[string]int{"error": 1, "warning": 1, "note": 2, "none": 0, "total": 4}, info)
}

func TestSortResultsByLevel(t *testing.T) {
	report, err := FromFindings(sampleFindings(), nil, "", nil)
	require.NoError(t, err)

	report.SortResultsByLevel()
	var ids []any
	for _, r := range report.Runs[0].Results {
		ids = append(ids, r.Properties["findingId"])
	}
	assert.Equal(t, []any{int64(2), int64(4), int64(1), int64(3)}, ids)
	assert.Empty(t, report.Runs[0].VersionControlProvenance)
}

func TestWriteFile(t *testing.T) {
	report, err := FromFindings(sampleFindings()[:1], nil, "", nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "2.1.0", decoded["version"])

	path := filepath.Join(t.TempDir(), "out.sarif")
	require.NoError(t, report.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, buf.String(), string(data))
}
