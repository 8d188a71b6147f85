package refresh

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/models"
)

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer
	err := PrintTable(&buf, []models.Finding{
		{ID: 7, Name: "SQL injection", FilePath: "db/q.go", Line: models.IntPtr(12), Severity: models.SeverityHigh, TriageStatus: models.StatusVerified},
		{ID: 8, Name: "Weak TLS", Severity: models.SeverityLow},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "db/q.go:12")
	assert.Contains(t, out, "SQL injection")
	assert.Contains(t, out, "VERIFIED")
	assert.Contains(t, out, "Loaded 2 findings")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintJSON(&buf, []models.Finding{{ID: 7, Name: "x", Severity: models.SeverityCritical}}))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.EqualValues(t, 4, decoded[0]["severity"])
}
