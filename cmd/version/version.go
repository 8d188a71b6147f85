package version

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/scanio-findings/internal/config"
)

var (
	AppConfig     *config.Config
	CoreVersion   = "unknown"
	GolangVersion = "unknown"
	BuildTime     = "unknown"

	outputJSON bool
)

// Versions holds build information of the binary.
type Versions struct {
	Version       string `json:"version"`
	GolangVersion string `json:"golang_version"`
	BuildTime     string `json:"build_time"`
	Endpoint      string `json:"endpoint,omitempty"`
}

// Init initializes the global configuration variable.
func Init(cfg *config.Config) {
	AppConfig = cfg
}

// NewVersionCmd creates a new cobra.Command for the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "version [--json]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Print the version number of the application",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := Versions{
				Version:       CoreVersion,
				GolangVersion: GolangVersion,
				BuildTime:     BuildTime,
			}
			if AppConfig != nil {
				v.Endpoint = AppConfig.Endpoint.URL
			}
			if outputJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "    ")
				return enc.Encode(v)
			}
			printVersionInfo(&v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "print version information as JSON")
	return cmd
}

// printVersionInfo prints the version information.
func printVersionInfo(v *Versions) {
	fmt.Printf("Core Version: v%s\n", v.Version)
	fmt.Printf("Go Version: %s\n", v.GolangVersion)
	fmt.Printf("Build Time: %s\n", v.BuildTime)
	if v.Endpoint != "" {
		fmt.Printf("API Endpoint: %s\n", v.Endpoint)
	}
}
