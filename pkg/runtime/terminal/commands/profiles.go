package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type ProfilesCmd struct {
	env Env
}

func NewProfilesCmd(env Env) *cobra.Command {
	pc := &ProfilesCmd{env: env}
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured credentials profiles",
		Args:  cobra.NoArgs,
		RunE:  pc.run,
	}
}

func (pc *ProfilesCmd) run(cmd *cobra.Command, _ []string) error {
	registry, err := pc.env.Profiles()
	if err != nil {
		return err
	}
	names, err := registry.GetProfiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	for _, name := range names {
		profile, err := registry.GetProfile(cmd.Context(), name)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid: %v\n", name, err)
			continue
		}
		source := "key_file=" + profile.KeyFile
		if profile.Locator != "" {
			source = "locator=" + profile.Locator
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, source)
	}
	return nil
}
