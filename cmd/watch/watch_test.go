package watch

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/scanio-findings/internal/config"
	"github.com/scan-io-git/scanio-findings/internal/models"
	machine "github.com/scan-io-git/scanio-findings/internal/refresh"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

func TestPrintState(t *testing.T) {
	testCases := []struct {
		name  string
		state machine.State
		want  string
	}{
		{name: "not loaded", state: machine.State{Phase: machine.PhaseNotLoaded}, want: ""},
		{name: "loading", state: machine.State{Phase: machine.PhaseLoading}, want: "Refreshing findings..."},
		{name: "error", state: machine.State{Phase: machine.PhaseError, Message: "Repository URL not found."}, want: "Error: Repository URL not found."},
		{
			name:  "loaded",
			state: machine.State{Phase: machine.PhaseLoaded, Findings: []models.Finding{{ID: 4, Name: "XSS", Severity: models.SeverityMedium}}},
			want:  "Loaded 1 findings",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, PrintState(&buf, tc.state))
			if tc.want == "" {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestRunWatchCommandStopsAfterCount(t *testing.T) {
	var buf bytes.Buffer
	out = &buf
	Init(session.Options{
		Config:       config.NewDefault(),
		ConfigPath:   "",
		SourceFolder: t.TempDir(),
		Logger:       hclog.NewNullLogger(),
	})
	interval, count = 0, 1

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	require.NoError(t, runWatchCommand(cmd, nil))
	require.NoError(t, ctx.Err(), "the first refresh ends the command")
	assert.Contains(t, buf.String(), "Error: API URL and token are not configured")
}
