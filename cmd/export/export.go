package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/cmd/version"
	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/git"
	"github.com/scan-io-git/scanio-findings/internal/sarif"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	opts       session.Options
	logger     hclog.Logger
	outputPath string
	sortLevel  bool
	timeout    time.Duration

	exampleExportUsage = `  # Export the synchronized findings as SARIF
  scanio-findings export --out findings.sarif

  # Write the report to stdout
  scanio-findings export --out -`
)

// ExportCmd writes the synchronized findings as a SARIF report.
var ExportCmd = &cobra.Command{
	Use:                   "export --out PATH [--sort]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleExportUsage,
	Short:                 "Export findings as a SARIF report",
	RunE:                  runExportCommand,
}

func init() {
	ExportCmd.Flags().StringVarP(&outputPath, "out", "o", "findings.sarif", "output file, - for stdout")
	ExportCmd.Flags().BoolVar(&sortLevel, "sort", false, "order results by level")
	ExportCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall time limit")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runExportCommand(cmd *cobra.Command, args []string) error {
	s, err := session.New(opts)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	list, err := s.Load(ctx, func(msg string) { logger.Debug(msg) })
	if err != nil {
		return errors.NewCommandError(err, 2)
	}

	source := opts.SourceFolder
	if source == "" {
		source = "."
	}
	meta, err := git.CollectRepositoryMetadata(source)
	if err != nil {
		logger.Warn("failed to collect repository metadata", "error", err)
		meta = nil
	}

	report, err := sarif.FromFindings(list, meta, version.CoreVersion, logger)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	if sortLevel {
		report.SortResultsByLevel()
	}

	if outputPath == "-" {
		return report.Write(os.Stdout)
	}
	if err := report.WriteFile(outputPath); err != nil {
		return errors.NewCommandError(err, 1)
	}

	info := report.CollectSeverityInfo()
	fmt.Printf("Exported %d findings to %s (error: %d, warning: %d, note: %d, none: %d)\n",
		info["total"], outputPath, info["error"], info["warning"], info["note"], info["none"])
	return nil
}
