package cmd

import (
	"github.com/spf13/cobra"
)

var version = "dev"

const defaultConfigPath = "contenthub.yaml"

// NewRootCmd creates the root cobra command for contenthub.
// When invoked without a subcommand, it delegates to "run".
func NewRootCmd(v string) *cobra.Command {
	version = v

	root := &cobra.Command{
		Use:   "contenthub",
		Short: "Content hub: creator hubs, paid subscriptions, posts and likes",
		Long:  "contenthub serves the hub registry, subscription ledger, post store and like ledger over HTTP, and can apply exec commands and queries directly against the configured store.",
		// Bare invocation (no subcommand) behaves as "run".
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newVersionCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newQueryCmd())

	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ./"+defaultConfigPath+")")

	return root
}

// resolveConfigPath returns the config file path from (in priority order):
// 1. Positional argument
// 2. --config / -c flag
// 3. Default value
func resolveConfigPath(cmd *cobra.Command, args []string, defaultPath string) string {
	if len(args) > 0 {
		return args[0]
	}
	if f := cmd.Flag("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	if f := cmd.Root().PersistentFlags().Lookup("config"); f != nil && f.Changed {
		return f.Value.String()
	}
	return defaultPath
}
