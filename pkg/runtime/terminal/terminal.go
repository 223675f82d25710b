package terminal

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/runtime/bootstrap"
	"github.com/de-tools/cloud-audit/pkg/runtime/terminal/commands"
	"github.com/de-tools/cloud-audit/pkg/runtime/terminal/export"
	"github.com/de-tools/cloud-audit/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type BuildFunc func(ctx context.Context, cfg *config.Config) (*bootstrap.Components, error)

// CLI represents the command-line interface
type CLI struct {
	build      BuildFunc
	reporter   *export.Reporter
	rootCmd    *cobra.Command
	configPath string
	verbose    bool
	components *bootstrap.Components
}

// Options contain configuration for the CLI
type Options struct {
	// Build assembles services once the configuration is loaded. Defaults to
	// bootstrap.New.
	Build  BuildFunc
	Output io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Build == nil {
		opts.Build = func(ctx context.Context, cfg *config.Config) (*bootstrap.Components, error) {
			return bootstrap.New(ctx, cfg)
		}
	}

	cli := &CLI{
		build:    opts.Build,
		reporter: export.NewReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

// Execute runs the command line and releases the services it opened.
func (cli *CLI) Execute() error {
	err := cli.rootCmd.Execute()
	return errors.Join(err, cli.teardown())
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "audit",
		Short:             "Google Cloud project audit tool",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: cli.setup,
	}

	cmd.PersistentFlags().StringVarP(&cli.configPath, "config", "c", "", "Path to the configuration file")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(commands.NewRunCmd(cli, cli.reporter))
	cmd.AddCommand(commands.NewChecksCmd(cli, cli.reporter))
	cmd.AddCommand(commands.NewProfilesCmd(cli))
	cmd.AddCommand(commands.NewSecretCmd(cli))
	cmd.AddCommand(commands.NewTokenCmd(cli))

	return cmd
}

func (cli *CLI) setup(cmd *cobra.Command, _ []string) error {
	level := zerolog.WarnLevel
	if cli.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	cfg, err := config.LoadConfig(cli.configPath)
	if err != nil {
		return err
	}

	components, err := cli.build(ctx, cfg)
	if err != nil {
		return err
	}
	cli.components = components
	return nil
}

func (cli *CLI) teardown() error {
	if cli.components == nil {
		return nil
	}
	err := cli.components.Close()
	cli.components = nil
	return err
}

func (cli *CLI) Auditor() commands.Auditor {
	return cli.components.Orchestrator
}

func (cli *CLI) Catalog() []domain.CheckInfo {
	return cli.components.Registry.Catalog()
}

func (cli *CLI) Profiles() (config.Registry, error) {
	return cli.components.Profiles()
}

func (cli *CLI) Secrets() (commands.SecretStore, error) {
	if cli.components.Secrets == nil {
		return nil, errors.New("secret store is not configured: set secrets.project")
	}
	return cli.components.Secrets, nil
}

func (cli *CLI) Tokens() commands.TokenIssuer {
	return cli.components.Gate
}
