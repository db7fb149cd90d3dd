package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amurg-ai/contenthub/hub/internal/auth"
	"github.com/amurg-ai/contenthub/hub/internal/config"
	"github.com/amurg-ai/contenthub/pkg/cli"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <identity>",
		Short: "Issue an API token for an identity (builtin auth only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath(cmd, nil, defaultConfigPath))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Auth.Provider != "builtin" {
				return fmt.Errorf("tokens can only be issued by the builtin provider, configured provider is %q", cfg.Auth.Provider)
			}
			token, err := auth.NewService(cfg.Auth).IssueToken(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password and print the bcrypt hash for auth.accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &cli.Prompter{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()}
			hash, err := auth.HashPassword(p.AskPassword("Password"))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
