// Package cli implements the forked command line.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	verbose bool
	metrics bool
}

// NewRootCommand builds the forked command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "forked",
		Short: "Fork and merge a versioned document",
		Long: `forked keeps one document in named forks. Each fork is edited on its
own and merged back into main, with conflicting edits resolved field by
field or by last write wins.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")
	rootCmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print engine metrics to stderr on exit")

	// Repository commands
	rootCmd.AddCommand(newInitCmd(opts))
	rootCmd.AddCommand(newForkCmd(opts))

	// Document commands
	rootCmd.AddCommand(newSetCmd(opts))
	rootCmd.AddCommand(newShowCmd(opts))

	// Merge commands
	rootCmd.AddCommand(newMergeCmd(opts))
	rootCmd.AddCommand(newSyncCmd(opts))

	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
