package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/vlist/internal/version"
)

var versionDetailed bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

func init() {
	versionCmd.Flags().BoolVarP(&versionDetailed, "detailed", "d", false, "print full build information")

	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) {
	if !versionDetailed {
		cmd.Println("vlist " + version.Short())

		return
	}

	info := version.Get()
	cmd.Printf("Version:  %s\n", info.Version)
	cmd.Printf("Commit:   %s\n", info.GitCommit)
	if !info.BuildTime.IsZero() {
		cmd.Printf("Built:    %s\n", info.BuildTime.Format(time.RFC3339))
	}
	cmd.Printf("Go:       %s\n", info.GoVersion)
	cmd.Printf("Platform: %s\n", info.Platform)
}
