package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	versionpkg "github.com/pandeptwidyaop/uatrack/internal/version"
)

var configPath string

// SetVersion sets the version information
func SetVersion(v, b, g string) {
	versionpkg.Version = v
	versionpkg.BuildDate = b
	versionpkg.GitCommit = g
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "uatrack-server",
	Short: "User-agent tracking server",
	Long: `uatrack-server records every HTTP request with a user-agent classification,
keeps a blocked crawler away from private paths and reports traffic statistics.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/server.yaml", "path to config file (optional)")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := versionpkg.GetVersion()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "uatrack server\n")
			fmt.Fprintf(out, "  Version:    %s\n", info.Version)
			fmt.Fprintf(out, "  Build Time: %s\n", info.BuildDate)
			fmt.Fprintf(out, "  Git Commit: %s\n", info.GitCommit)
			fmt.Fprintf(out, "  Go Version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "  Platform:   %s\n", info.Platform)
		},
	})
}
