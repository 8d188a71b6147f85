package reject

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	opts    session.Options
	logger  hclog.Logger
	forever bool
	timeout time.Duration

	exampleRejectUsage = `  # Reject finding 1234
  scanio-findings reject 1234

  # Reject finding 1234 and every future finding with the same name and file
  scanio-findings reject --forever 1234`
)

// RejectCmd rejects a loaded finding.
var RejectCmd = &cobra.Command{
	Use:                   "reject [--forever] FINDING_ID",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleRejectUsage,
	Short:                 "Reject a finding",
	Args:                  cobra.ExactArgs(1),
	RunE:                  runRejectCommand,
}

func init() {
	RejectCmd.Flags().BoolVar(&forever, "forever", false, "create a rule rejecting future findings with the same name and file path")
	RejectCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall time limit")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runRejectCommand(cmd *cobra.Command, args []string) error {
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

	if forever {
		res, err := s.Suppressor.RejectForever(ctx, finding)
		if err != nil {
			logger.Error("reject forever failed", "id", id, "error", err)
			return errors.NewCommandError(err, 2)
		}
		if res.Created == nil {
			fmt.Printf("Found %d existing rule(s) for this finding (search: %s)\n", res.ExistingRules, res.Query.Search)
			return nil
		}
		fmt.Printf("Created rule %d rejecting %q in %s\n", res.Created.ID, finding.Name, finding.FilePath)
		return nil
	}

	res, err := s.Rejecter.Reject(ctx, finding)
	if err != nil {
		logger.Error("reject failed", "id", id, "error", err)
		return errors.NewCommandError(err, 2)
	}
	fmt.Printf("Finding %d has been rejected successfully (%d tag(s) added)\n", id, res.TagsAdded)
	return nil
}
