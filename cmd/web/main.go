package main

import (
	"fmt"
	"os"

	"github.com/de-tools/cloud-audit/pkg/runtime/bootstrap"
	"github.com/de-tools/cloud-audit/pkg/server"
	"github.com/de-tools/cloud-audit/pkg/services/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Cloud Audit",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the configuration file (defaults and AUDIT_* variables apply without one)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	components, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := components.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close services")
		}
	}()

	deps := components.ServerDependencies()
	if deps.Secrets == nil {
		logger.Warn().Msg("secrets.project is not set: credential upload and locators are disabled")
	}
	if deps.Tokens == nil {
		logger.Warn().Msg("auth.signing_key is not set: API routes are not authenticated")
	}

	logger.Info().
		Int("checks", len(components.Registry.Names())).
		Dur("check_timeout", cfg.Audit.CheckTimeout).
		Msg("services initialized")

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            cfg.Server.Addr(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies:    deps,
	})
	return webAPI.Start()
}
