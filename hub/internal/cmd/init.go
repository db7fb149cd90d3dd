package cmd

import (
	"github.com/spf13/cobra"

	"github.com/amurg-ai/contenthub/hub/internal/wizard"
	"github.com/amurg-ai/contenthub/pkg/cli"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactive setup wizard to generate a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			defaults, _ := cmd.Flags().GetBool("defaults")

			p := cli.DefaultPrompter()
			p.Out = cmd.OutOrStdout()
			w := wizard.New(p)
			if defaults {
				return w.RunDefaults(output)
			}
			return w.Run(output)
		},
	}
	cmd.Flags().StringP("output", "o", "", "output config file path, .json or .yaml (default: ./"+defaultConfigPath+")")
	cmd.Flags().Bool("defaults", false, "generate config non-interactively using CONTENTHUB_* env vars and secure defaults")
	return cmd
}
