package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/javanhut/forked/internal/colors"
	"github.com/javanhut/forked/internal/config"
)

var configKeys = []string{"storage.backend", "storage.path", "merge.resolver", "log.level"}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Get and set configuration options",
		Long: `Get and set forked configuration options.

Configuration can be set at two levels:
- Global (~/.forkedconfig) - applies to all repositories
- Repository (.forked/config) - applies to current repository only

Examples:
  forked config set storage.backend file
  forked config set --global merge.resolver lww
  forked config get log.level
  forked config list`,
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := config.GetValue(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}

	var global bool
	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetValue(args[0], args[1], global); err != nil {
				return err
			}
			scope := "repository"
			if global {
				scope = "global"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s (%s)\n", args[0], args[1], scope)
			return nil
		},
	}
	setCmd.Flags().BoolVar(&global, "global", false, "Use global config file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			for _, key := range configKeys {
				value, err := config.GetValue(key)
				if err != nil {
					return err
				}
				if value == "" {
					value = colors.Gray("(not set)")
				}
				if key == "storage.path" && value != "" {
					value += colors.Gray(" -> " + cfg.StoragePath())
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			}
			return nil
		},
	}

	configCmd.AddCommand(getCmd, setCmd, listCmd)
	return configCmd
}
