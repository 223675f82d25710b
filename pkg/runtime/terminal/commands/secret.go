package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type SecretCmd struct {
	keyFile string
	env     Env
}

// NewSecretCmd groups secret store operations under "secret".
func NewSecretCmd(env Env) *cobra.Command {
	sc := &SecretCmd{env: env}
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage stored credentials",
	}

	store := &cobra.Command{
		Use:   "store",
		Short: "Store a service account key and print its locator",
		Args:  cobra.NoArgs,
		RunE:  sc.store,
	}
	store.Flags().StringVar(&sc.keyFile, "key-file", "", "Path to a service account key file")
	_ = store.MarkFlagRequired("key-file")

	cmd.AddCommand(store)
	return cmd
}

func (sc *SecretCmd) store(cmd *cobra.Command, _ []string) error {
	material, err := os.ReadFile(sc.keyFile)
	if err != nil {
		return fmt.Errorf("failed to read key file: %w", err)
	}

	secrets, err := sc.env.Secrets()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	locator, err := secrets.Store(ctx, material)
	if err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), locator)
	return nil
}
