package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/forked/internal/colors"
	"github.com/javanhut/forked/internal/forked"
)

func newMergeCmd(opts *rootOptions) *cobra.Command {
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge forks with main",
	}

	upCmd := &cobra.Command{
		Use:   "up <fork>",
		Short: "Merge a fork into main",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			fork := forked.Fork(args[0])
			outcome, err := s.res.MergeIntoMain(fork, s.resolver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s: %s\n", colors.Fork(fork.String()), colors.Fork(forked.Main.String()), colors.Outcome(outcome.String()))
			return nil
		}),
	}

	downCmd := &cobra.Command{
		Use:   "down <fork>",
		Short: "Merge main into a fork",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			fork := forked.Fork(args[0])
			outcome, err := s.res.MergeFromMain(fork, s.resolver)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s: %s\n", colors.Fork(forked.Main.String()), colors.Fork(fork.String()), colors.Outcome(outcome.String()))
			return nil
		}),
	}

	allCmd := &cobra.Command{
		Use:   "all <fork>",
		Short: "Merge every other fork into main, then main into a fork",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			fork := forked.Fork(args[0])
			if err := s.res.MergeAllForksInto(fork, s.resolver); err != nil {
				return err
			}
			v, err := s.res.MostRecentVersion(fork)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged all forks into %s at %s\n", colors.Fork(fork.String()), colors.Version(v.String()))
			return nil
		}),
	}

	mergeCmd.AddCommand(upCmd, downCmd, allCmd)
	return mergeCmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge every fork into main and bring every fork up to date",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			if err := s.res.SyncAllForks(s.resolver); err != nil {
				return err
			}
			forks, err := s.res.Forks()
			if err != nil {
				return err
			}
			v, err := s.res.MostRecentVersion(forked.Main)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d forks at %s\n", len(forks), colors.Version(v.String()))
			return nil
		}),
	}
}
