// Package bootstrap assembles the audit services from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/de-tools/cloud-audit/pkg/metrics"
	"github.com/de-tools/cloud-audit/pkg/server"
	"github.com/de-tools/cloud-audit/pkg/services/audit"
	"github.com/de-tools/cloud-audit/pkg/services/auth"
	"github.com/de-tools/cloud-audit/pkg/services/checks"
	"github.com/de-tools/cloud-audit/pkg/services/config"
	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/de-tools/cloud-audit/pkg/services/secrets"
	"github.com/de-tools/cloud-audit/pkg/store/gcp"
	"github.com/de-tools/cloud-audit/pkg/store/secretmanager"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/api/option"
)

type Components struct {
	Config       *config.Config
	Registry     checks.Registry
	Orchestrator audit.Orchestrator
	Gate         *auth.Gate
	Metrics      *prometheus.Registry
	Secrets      *secrets.Manager // nil unless secrets.project is set

	closers []io.Closer
}

type settings struct {
	factory      audit.ProviderFactory
	secretStore  secrets.Store
	storeOptions []option.ClientOption
}

type Option func(*settings)

// WithProviderFactory replaces the live Google Cloud provider.
func WithProviderFactory(f audit.ProviderFactory) Option {
	return func(s *settings) {
		s.factory = f
	}
}

// WithSecretStore replaces the Secret Manager backed store.
func WithSecretStore(store secrets.Store) Option {
	return func(s *settings) {
		s.secretStore = store
	}
}

// WithSecretStoreOptions passes client options to the Secret Manager client.
func WithSecretStoreOptions(opts ...option.ClientOption) Option {
	return func(s *settings) {
		s.storeOptions = append(s.storeOptions, opts...)
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Components, error) {
	s := &settings{factory: gcp.Factory}
	for _, opt := range opts {
		opt(s)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Components{
		Config:   cfg,
		Registry: checks.DefaultRegistry(),
		Metrics:  reg,
		Gate: auth.NewGate(cfg.Auth.SigningKey,
			auth.WithTTL(cfg.Auth.TokenTTL),
			auth.WithUsers(cfg.Auth.Users),
		),
	}

	var retriever credentials.SecretRetriever
	if cfg.Secrets.Project != "" {
		store := s.secretStore
		if store == nil {
			smStore, err := secretmanager.NewStore(ctx, s.storeOptions...)
			if err != nil {
				return nil, fmt.Errorf("failed to create secret store: %w", err)
			}
			c.closers = append(c.closers, smStore)
			store = smStore
		}
		c.Secrets = secrets.NewManager(store, cfg.Secrets.Project, cfg.Secrets.Prefix)
		retriever = c.Secrets
	}

	c.Orchestrator = audit.NewOrchestrator(
		c.Registry,
		credentials.NewResolver(retriever),
		s.factory,
		audit.WithCheckTimeout(cfg.Audit.CheckTimeout),
		audit.WithConcurrency(cfg.Audit.Concurrency),
		audit.WithRecorder(metrics.NewAudit(reg)),
	)
	return c, nil
}

// ServerDependencies leaves token issuing and secret upload unset when they are
// not configured, so the API answers them with not_configured.
func (c *Components) ServerDependencies() server.Dependencies {
	deps := server.Dependencies{
		Auditor: c.Orchestrator,
		Catalog: c.Registry,
		Gate:    c.Gate,
		Metrics: c.Metrics,
	}
	if c.Gate.Enabled() {
		deps.Tokens = c.Gate
	}
	if c.Secrets != nil {
		deps.Secrets = c.Secrets
	}
	return deps
}

// Profiles opens the credentials profile file named by profiles.path.
func (c *Components) Profiles() (config.Registry, error) {
	registry, err := config.NewRegistry(c.Config.Profiles.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", c.Config.Profiles.Path, err)
	}
	return registry, nil
}

func (c *Components) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
