package setup

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	opts    session.Options
	logger  hclog.Logger
	url     string
	token   string
	verify  bool
	timeout time.Duration

	exampleSetupUsage = `  # Store the API endpoint and token, then check them with a refresh
  scanio-findings setup --url https://appsec.example.com --token <TOKEN>

  # Prompt for the token without echoing it
  scanio-findings setup --url https://appsec.example.com`
)

// SetupCmd stores the API endpoint and token.
var SetupCmd = &cobra.Command{
	Use:                   "setup --url URL [--token TOKEN] [--verify=false]",
	SilenceUsage:          true,
	DisableFlagsInUseLine: true,
	Example:               exampleSetupUsage,
	Short:                 "Configure the AppSec API endpoint",
	RunE:                  runSetupCommand,
}

func init() {
	SetupCmd.Flags().StringVar(&url, "url", "", "AppSec API base URL")
	SetupCmd.Flags().StringVar(&token, "token", "", "AppSec API token, prompted for when omitted on a terminal")
	SetupCmd.Flags().BoolVar(&verify, "verify", true, "run a refresh with the new endpoint")
	SetupCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "time limit of the verification refresh")
	_ = SetupCmd.MarkFlagRequired("url")
}

// Init sets the session options used by the command.
func Init(o session.Options) {
	opts = o
	logger = o.Logger
}

func runSetupCommand(cmd *cobra.Command, args []string) error {
	s, err := session.New(opts)
	if err != nil {
		return errors.NewCommandError(err, 1)
	}
	defer s.Close()

	if token == "" {
		if token, err = readToken(); err != nil {
			return errors.NewCommandError(err, 1)
		}
	}
	if err := s.Configure(url, token); err != nil {
		logger.Error("invalid setup arguments", "error", err)
		return errors.NewCommandErrorf(1, "invalid setup arguments: %w", err)
	}
	logger.Info("configuration saved", "path", opts.ConfigPath, "url", url)

	if !verify {
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	list, err := s.Load(ctx, func(msg string) { logger.Info(msg) })
	if err != nil {
		return errors.NewCommandErrorf(2, "configuration saved, but the refresh failed: %w", err)
	}
	fmt.Printf("Configuration saved. Loaded %d findings\n", len(list))
	return nil
}

// readToken prompts for the token on an interactive terminal.
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--token is required when stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "API token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
