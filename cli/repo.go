package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/javanhut/forked/internal/colors"
	"github.com/javanhut/forked/internal/config"
	"github.com/javanhut/forked/internal/forked"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	var backendName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a forked repository",
		Long:  "Creates the .forked directory and a main fork holding an empty document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(config.Dir, 0755); err != nil {
				return fmt.Errorf("failed to create %s: %w", config.Dir, err)
			}
			if backendName != "" {
				if err := config.SetValue("storage.backend", backendName, false); err != nil {
					return err
				}
			}
			return withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
				abs, err := filepath.Abs(config.Dir)
				if err != nil {
					abs = config.Dir
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Initialized forked repository in %s (%s storage)\n", abs, s.cfg.Storage.Backend)
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&backendName, "backend", "", "Storage backend: atomic, file or bolt")
	return cmd
}

func newForkCmd(opts *rootOptions) *cobra.Command {
	forkCmd := &cobra.Command{
		Use:   "fork",
		Short: "Manage forks",
	}

	createCmd := &cobra.Command{
		Use:   "create <name>...",
		Short: "Create forks",
		Args:  cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			for _, name := range args {
				if err := s.res.Create(forked.Fork(name)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created fork %s\n", colors.Fork(name))
			}
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List forks with their versions",
		Args:    cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			forks, err := s.res.Forks()
			if err != nil {
				return err
			}
			slices.Sort(forks)
			for _, fork := range forks {
				line, err := describeFork(s, fork)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		}),
	}

	removeCmd := &cobra.Command{
		Use:     "rm <name>...",
		Aliases: []string{"remove"},
		Short:   "Delete forks and their history",
		Args:    cobra.MinimumNArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			for _, name := range args {
				if err := s.res.Delete(forked.Fork(name)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed fork %s\n", colors.Fork(name))
			}
			return nil
		}),
	}

	forkCmd.AddCommand(createCmd, listCmd, removeCmd)
	return forkCmd
}

// describeFork formats one line of fork list output.
func describeFork(s *session, fork forked.Fork) (string, error) {
	v, err := s.res.MostRecentVersion(fork)
	if err != nil {
		return "", err
	}
	line := fmt.Sprintf("%-20s %s", colors.Fork(fork.String()), colors.Version(v.String()))
	if fork == forked.Main {
		return line, nil
	}

	ahead, err := s.res.HasUnmergedCommitsForMain(fork)
	if err != nil {
		return "", err
	}
	behind, err := s.res.HasUnmergedCommitsInMain(fork)
	if err != nil {
		return "", err
	}
	switch {
	case ahead && behind:
		line += " " + colors.WarningText("(diverged)")
	case ahead:
		line += " " + colors.Added("(ahead of main)")
	case behind:
		line += " " + colors.Gray("(behind main)")
	}
	return line, nil
}
