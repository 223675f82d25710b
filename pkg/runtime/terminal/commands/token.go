package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type TokenCmd struct {
	username string
	password string
	env      Env
}

func NewTokenCmd(env Env) *cobra.Command {
	tc := &TokenCmd{env: env}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}

	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a bearer token for a configured user",
		Args:  cobra.NoArgs,
		RunE:  tc.issue,
	}
	issue.Flags().StringVar(&tc.username, "username", "", "User name from auth.users")
	issue.Flags().StringVar(&tc.password, "password", "", "Password of the user")
	_ = issue.MarkFlagRequired("username")
	_ = issue.MarkFlagRequired("password")

	cmd.AddCommand(issue)
	return cmd
}

func (tc *TokenCmd) issue(cmd *cobra.Command, _ []string) error {
	token, expiresAt, err := tc.env.Tokens().Issue(tc.username, tc.password)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\nexpires: %s\n", token, expiresAt.UTC().Format(time.RFC3339))
	return nil
}
