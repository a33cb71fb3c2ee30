package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iliassync",
		Short: "Synchronize ILIAS course material to a local directory.",
		Long: `iliassync mirrors the courses on your ILIAS personal desktop into a
local directory tree. Files, forums, exercise sheets, OpenCast lectures and
weblinks are fetched concurrently; a second run only downloads what changed.`,

		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is none)")

	cmd.AddCommand(newSyncCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
