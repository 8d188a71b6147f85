package watch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/cmd/refresh"
	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/events"
	machine "github.com/scan-io-git/scanio-findings/internal/refresh"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	opts     session.Options
	logger   hclog.Logger
	interval time.Duration
	count    int
	out      io.Writer = os.Stdout

	exampleWatchUsage = `  # Keep the findings in sync, refreshing every five minutes
  scanio-findings watch --interval 5m

  # Stop after the first completed refresh
  scanio-findings watch --count 1`
)

// WatchCmd keeps a session running and prints every refresh outcome.
var WatchCmd = &cobra.Command{
	Use:                   "watch [--interval D] [--count N]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleWatchUsage,
	Short:                 "Keep findings synchronized until interrupted",
	RunE:                  runWatchCommand,
}

func init() {
	WatchCmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "time between refresh requests, 0 to refresh only at start")
	WatchCmd.Flags().IntVar(&count, "count", 0, "exit after N completed refreshes, 0 to run until interrupted")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	if interval < 0 || count < 0 {
		return errors.NewCommandErrorf(1, "--interval and --count must not be negative")
	}

	s, err := session.New(opts)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	defer s.Close()

	states, progress, stop := s.Machine.Observe()
	defer stop()
	s.Start()

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	ctx := cmd.Context()
	completed := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("watch stopped", "refreshes", completed)
			return nil
		case <-tick:
			msg := s.Bus.Publish(events.RefreshRequested)
			logger.Debug("refresh requested", "id", msg.ID)
		case msg, ok := <-progress:
			if !ok {
				progress = nil
				continue
			}
			logger.Debug(msg)
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if err := PrintState(out, st); err != nil {
				return errors.NewCommandError(err, 1)
			}
			if st.Phase == machine.PhaseLoaded || st.Phase == machine.PhaseError {
				completed++
				if count > 0 && completed >= count {
					return nil
				}
			}
		}
	}
}

// PrintState writes one line per state change, and the findings table once loaded.
func PrintState(w io.Writer, st machine.State) error {
	switch st.Phase {
	case machine.PhaseLoading:
		_, err := fmt.Fprintf(w, "[%s] Refreshing findings...\n", time.Now().Format(time.TimeOnly))
		return err
	case machine.PhaseLoaded:
		return refresh.PrintTable(w, st.Findings)
	case machine.PhaseError:
		_, err := fmt.Fprintf(w, "[%s] Error: %s\n", time.Now().Format(time.TimeOnly), st.Message)
		return err
	}
	return nil
}
