package detail

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/render"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	opts       session.Options
	logger     hclog.Logger
	asHTML     bool
	outputPath string
	timeout    time.Duration
)

// DetailCmd prints the detail view of a finding.
var DetailCmd = &cobra.Command{
	Use:                   "detail [--html] [--out PATH] FINDING_ID",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Short:                 "Show the details of a finding as markdown or HTML",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runDetailCommand,
}

func init() {
	DetailCmd.Flags().BoolVar(&asHTML, "html", false, "render an HTML page")
	DetailCmd.Flags().StringVarP(&outputPath, "out", "o", "", "write to a file instead of stdout")
	DetailCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall time limit")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runDetailCommand(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.NewCommandErrorf(1, "invalid finding id %q", args[0])
	}

	s, err := session.New(opts)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if _, err := s.Load(ctx, func(msg string) { logger.Debug(msg) }); err != nil {
		return errors.NewCommandError(err, 2)
	}
	finding, ok := s.Finding(id)
	if !ok {
		return errors.NewCommandErrorf(1, "finding %d is not among the loaded findings", id)
	}

	out := render.FindingMarkdown(finding, s.Store.Endpoint().URL)
	if asHTML {
		out, err = render.Document(out, fmt.Sprintf("Finding %d", finding.ID))
		if err != nil {
			return errors.NewCommandError(err, 1)
		}
	}

	if outputPath == "" {
		_, err = fmt.Fprint(os.Stdout, out)
		return err
	}
	if err := os.WriteFile(outputPath, []byte(out), 0o644); err != nil {
		return errors.NewCommandError(err, 1)
	}
	logger.Info("finding details written", "path", outputPath)
	return nil
}
