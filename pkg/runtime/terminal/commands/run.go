package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/de-tools/cloud-audit/pkg/adapters"
	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type RunCmd struct {
	profile  string
	keyFile  string
	locator  string
	project  string
	checks   []string
	output   string
	timeout  time.Duration
	strict   bool
	env      Env
	reporter *export.Reporter
}

func NewRunCmd(env Env, reporter *export.Reporter) *cobra.Command {
	rc := &RunCmd{env: env, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run audit checks against a project",
		RunE:  rc.run,
	}

	cmd.Flags().StringVar(&rc.profile, "profile", "", "Credentials profile name")
	cmd.Flags().StringVar(&rc.keyFile, "key-file", "", "Path to a service account key file")
	cmd.Flags().StringVar(&rc.locator, "locator", "", "Secret locator of stored credentials")
	cmd.Flags().StringVar(&rc.project, "project", "", "Expected project of the credentials")
	cmd.Flags().StringSliceVar(&rc.checks, "checks", nil, "Checks to run (default all)")
	cmd.Flags().StringVarP(&rc.output, "output", "o", string(export.FormatTable), "Output format: table, json or yaml")
	cmd.Flags().DurationVar(&rc.timeout, "timeout", 10*time.Minute, "Deadline for the whole audit")
	cmd.Flags().BoolVar(&rc.strict, "strict", false, "Exit with an error when any check failed")

	cmd.MarkFlagsOneRequired("profile", "key-file", "locator")
	cmd.MarkFlagsMutuallyExclusive("profile", "key-file", "locator")

	return cmd
}

func (rc *RunCmd) run(cmd *cobra.Command, _ []string) error {
	format, err := export.ParseFormat(rc.output)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), rc.timeout)
	defer cancel()

	ref, err := rc.reference(ctx)
	if err != nil {
		return err
	}

	report, err := rc.env.Auditor().Audit(ctx, ref, rc.checks)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	apiReport := adapters.MapAuditReportDomainToApi(*report)
	if err := rc.reporter.WithFormat(format).Handle(&apiReport); err != nil {
		return err
	}

	if failed := report.Failed(); rc.strict && len(failed) > 0 {
		return fmt.Errorf("%d check(s) failed", len(failed))
	}
	return nil
}

func (rc *RunCmd) reference(ctx context.Context) (domain.CredentialReference, error) {
	var ref domain.CredentialReference
	switch {
	case rc.profile != "":
		profiles, err := rc.env.Profiles()
		if err != nil {
			return ref, err
		}
		profile, err := profiles.GetProfile(ctx, rc.profile)
		if err != nil {
			return ref, err
		}
		if ref, err = profile.Reference(); err != nil {
			return ref, err
		}
	case rc.keyFile != "":
		material, err := os.ReadFile(rc.keyFile)
		if err != nil {
			return ref, fmt.Errorf("failed to read key file: %w", err)
		}
		ref.Material = material
	case rc.locator != "":
		ref.Locator = rc.locator
	default:
		return ref, errors.New("one of --profile, --key-file or --locator is required")
	}

	if rc.project != "" {
		ref.ExpectedProject = rc.project
	}
	return ref, nil
}
