package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/cmd/detail"
	"github.com/scan-io-git/scanio-findings/cmd/export"
	"github.com/scan-io-git/scanio-findings/cmd/refresh"
	"github.com/scan-io-git/scanio-findings/cmd/reject"
	"github.com/scan-io-git/scanio-findings/cmd/setup"
	"github.com/scan-io-git/scanio-findings/cmd/show"
	"github.com/scan-io-git/scanio-findings/cmd/version"
	"github.com/scan-io-git/scanio-findings/cmd/watch"
	"github.com/scan-io-git/scanio-findings/internal/config"
	scanioerrors "github.com/scan-io-git/scanio-findings/internal/errors"
	"github.com/scan-io-git/scanio-findings/internal/logger"
	"github.com/scan-io-git/scanio-findings/internal/session"
)

var (
	cfgFile      string
	sourceFolder string
	AppConfig    *config.Config
	Logger       hclog.Logger
	rootCmd      = &cobra.Command{
		Use:                   "scanio-findings [command]",
		SilenceUsage:          true,
		SilenceErrors:         true,
		DisableFlagsInUseLine: true,
		Short:                 "Synchronize security findings with the local repository.",
		Long: `scanio-findings resolves the remote assets of the current git repository, pulls
	their security findings from the AppSec API and shows them next to the source code.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $APPSEC_HOME/config.yml, ./config.yml or ~/.scanio-findings/config.yml)")
	rootCmd.PersistentFlags().StringVar(&sourceFolder, "source", ".", "project folder inside the git repository")

	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(refresh.RefreshCmd)
	rootCmd.AddCommand(show.ShowCmd)
	rootCmd.AddCommand(reject.RejectCmd)
	rootCmd.AddCommand(export.ExportCmd)
	rootCmd.AddCommand(detail.DetailCmd)
	rootCmd.AddCommand(setup.SetupCmd)
	rootCmd.AddCommand(watch.WatchCmd)
}

// Execute runs the root command and returns the process exit code.
// An interrupt cancels the running command's context.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var cmdErr *scanioerrors.CommandError
		if errors.As(err, &cmdErr) {
			return cmdErr.ExitCode
		}
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	cfgPath := config.ResolvePath(cfgFile)
	AppConfig, err = config.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config file: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	Logger = logger.NewLogger(AppConfig, "core")
	opts := session.Options{
		Config:       AppConfig,
		ConfigPath:   cfgPath,
		SourceFolder: sourceFolder,
		Logger:       Logger,
	}

	version.Init(AppConfig)
	refresh.Init(opts)
	show.Init(opts)
	reject.Init(opts)
	export.Init(opts)
	detail.Init(opts)
	setup.Init(opts)
	watch.Init(opts)
}
