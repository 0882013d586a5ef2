package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/s0up4200/foxcheck/foxentry"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No config is needed to print the version
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "foxcheck %s\n", version)
		fmt.Fprintf(out, "- Built: %s\n", buildTime)
		fmt.Fprintf(out, "- Foxentry client: %s (API %s)\n", foxentry.Version, foxentry.DefaultAPIVersion)
		fmt.Fprintf(out, "- Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
