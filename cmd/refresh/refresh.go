package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/models"
	"github.com/scan-io-git/scanio-findings/internal/overlay"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

// RunOptions holds the refresh command flags.
type RunOptions struct {
	OutputFormat string
	Timeout      time.Duration
}

var (
	opts       session.Options
	logger     hclog.Logger
	runOptions RunOptions

	exampleRefreshUsage = `  # Synchronize findings for the repository in the current folder
  scanio-findings refresh

  # Print the findings as JSON
  scanio-findings refresh --output json --source /path/to/project`
)

// RefreshCmd runs one synchronization and prints the result.
var RefreshCmd = &cobra.Command{
	Use:                   "refresh [--output text|json] [--timeout DURATION]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRefreshUsage,
	Short:                 "Synchronize findings of the current repository",
	RunE:                  runRefreshCommand,
}

func init() {
	RefreshCmd.Flags().StringVarP(&runOptions.OutputFormat, "output", "o", "text", "output format: text or json")
	RefreshCmd.Flags().DurationVar(&runOptions.Timeout, "timeout", 2*time.Minute, "overall time limit")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runRefreshCommand(cmd *cobra.Command, args []string) error {
	if runOptions.OutputFormat != "text" && runOptions.OutputFormat != "json" {
		return errors.NewCommandErrorf(1, "unsupported output format %q", runOptions.OutputFormat)
	}

	s, err := session.New(opts)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), runOptions.Timeout)
	defer cancel()

	list, err := s.Load(ctx, func(msg string) { logger.Info(msg) })
	if err != nil {
		logger.Error("refresh failed", "error", err)
		return errors.NewCommandError(err, 2)
	}

	if runOptions.OutputFormat == "json" {
		return PrintJSON(os.Stdout, list)
	}
	return PrintTable(os.Stdout, list)
}

// PrintJSON writes findings as an indented JSON array.
func PrintJSON(w io.Writer, list []models.Finding) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(list)
}

// PrintTable writes one line per finding with its severity glyph.
func PrintTable(w io.Writer, list []models.Finding) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, f := range list {
		style := overlay.StyleFor(f.Severity)
		loc := f.FilePath
		if f.Line != nil {
			loc = fmt.Sprintf("%s:%d", f.FilePath, *f.Line)
		}
		if loc == "" {
			loc = "-"
		}
		fmt.Fprintf(tw, "%s %s\t%d\t%s\t%s\t%s\n",
			style.Render(style.Icon), style.Render(f.Severity.String()), f.ID, f.TriageStatus, loc, f.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Loaded %d findings\n", len(list))
	return err
}
