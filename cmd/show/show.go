package show

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/overlay/terminal"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	opts    session.Options
	logger  hclog.Logger
	around  int
	timeout time.Duration

	exampleShowUsage = `  # Show a file with its findings and three lines of context around each
  scanio-findings show internal/db/query.go

  # Show the whole file
  scanio-findings show --around -1 internal/db/query.go`
)

// ShowCmd prints a file with the findings painted in its gutter.
var ShowCmd = &cobra.Command{
	Use:                   "show [--around N] FILE",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleShowUsage,
	Short:                 "Show a file with its findings",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runShowCommand,
}

func init() {
	ShowCmd.Flags().IntVar(&around, "around", 3, "lines of context around each finding, -1 for the whole file")
	ShowCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall time limit")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runShowCommand(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	doc, err := terminal.Open(path)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}

	s, err := session.New(opts)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	defer s.Close()

	s.Overlay.OnFileOpened(doc)
	defer s.Overlay.OnFileClosed(doc)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	if _, err := s.Load(ctx, func(msg string) { logger.Debug(msg) }); err != nil {
		logger.Error("refresh failed", "error", err)
		return errors.NewCommandError(err, 2)
	}

	known := s.Overlay.FindingsFor(doc)
	painted := s.Overlay.MarkerCount(doc)
	if len(known) == 0 {
		fmt.Fprintf(os.Stdout, "No findings for %s\n", args[0])
		return nil
	}
	if !s.Store.HighlightEnabled() {
		logger.Warn("highlighting is disabled in the configuration")
	}
	if err := terminal.Render(os.Stdout, doc, around); err != nil {
		return errors.NewCommandError(err, 1)
	}
	if skipped := len(known) - painted; skipped > 0 {
		fmt.Fprintf(os.Stdout, "%d finding(s) point outside the file and were skipped\n", skipped)
	}
	return nil
}
