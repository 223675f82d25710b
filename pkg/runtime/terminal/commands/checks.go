package commands

import (
	"github.com/de-tools/cloud-audit/pkg/adapters"
	"github.com/de-tools/cloud-audit/pkg/models/api"
	"github.com/de-tools/cloud-audit/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type ChecksCmd struct {
	output   string
	env      Env
	reporter *export.Reporter
}

func NewChecksCmd(env Env, reporter *export.Reporter) *cobra.Command {
	cc := &ChecksCmd{env: env, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "checks",
		Short: "List available checks",
		Args:  cobra.NoArgs,
		RunE:  cc.run,
	}
	cmd.Flags().StringVarP(&cc.output, "output", "o", string(export.FormatTable), "Output format: table, json or yaml")
	return cmd
}

func (cc *ChecksCmd) run(_ *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(cc.output)
	if err != nil {
		return err
	}

	catalog := cc.env.Catalog()
	infos := make([]api.CheckInfo, 0, len(catalog))
	for _, info := range catalog {
		infos = append(infos, adapters.MapCheckInfoDomainToApi(info))
	}
	return cc.reporter.WithFormat(format).HandleCatalog(infos)
}
