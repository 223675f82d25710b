// Package audit runs a selection of checks against one project concurrently
// and assembles their outcomes into a report.
package audit

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/checks"
	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultCheckTimeout = 2 * time.Minute

type CredentialResolver interface {
	Resolve(ctx context.Context, ref domain.CredentialReference) (*credentials.Session, error)
}

// ProviderFactory builds the resource provider a run's checks share.
type ProviderFactory func(ctx context.Context, session *credentials.Session) (checks.Provider, error)

type Recorder interface {
	RunStarted()
	CheckFinished(check, outcome string, findings int, elapsed time.Duration)
}

type Orchestrator interface {
	// Run executes the named checks, or every registered check when names is
	// empty, against the session's project.
	Run(ctx context.Context, session *credentials.Session, names []string) (*domain.AuditReport, error)
	// Audit resolves ref and runs the named checks with the resulting session.
	Audit(ctx context.Context, ref domain.CredentialReference, names []string) (*domain.AuditReport, error)
}

type Option func(*orchestrator)

// WithCheckTimeout bounds each check. Zero disables the bound.
func WithCheckTimeout(d time.Duration) Option {
	return func(o *orchestrator) {
		o.checkTimeout = d
	}
}

// WithConcurrency caps the number of checks running at once. Zero or less
// runs every selected check at once.
func WithConcurrency(n int) Option {
	return func(o *orchestrator) {
		o.concurrency = n
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

type orchestrator struct {
	registry     checks.Registry
	resolver     CredentialResolver
	newProvider  ProviderFactory
	checkTimeout time.Duration
	concurrency  int
	recorder     Recorder
}

func NewOrchestrator(registry checks.Registry, resolver CredentialResolver, factory ProviderFactory, opts ...Option) Orchestrator {
	o := &orchestrator{
		registry:     registry,
		resolver:     resolver,
		newProvider:  factory,
		checkTimeout: DefaultCheckTimeout,
		recorder:     nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *orchestrator) Audit(ctx context.Context, ref domain.CredentialReference, names []string) (*domain.AuditReport, error) {
	selected, err := o.selectChecks(names)
	if err != nil {
		return nil, err
	}
	session, err := o.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, session, selected)
}

func (o *orchestrator) Run(ctx context.Context, session *credentials.Session, names []string) (*domain.AuditReport, error) {
	selected, err := o.selectChecks(names)
	if err != nil {
		return nil, err
	}
	return o.run(ctx, session, selected)
}

// selectChecks validates every name before anything is dispatched.
func (o *orchestrator) selectChecks(names []string) ([]checks.Check, error) {
	if len(names) == 0 {
		names = o.registry.Names()
	}

	var (
		selected []checks.Check
		unknown  []string
		seen     = make(map[string]struct{}, len(names))
	)
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		c, ok := o.registry.Get(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, c)
	}
	if len(unknown) > 0 {
		return nil, &Error{Kind: KindUnknownCheck, Names: unknown}
	}
	return selected, nil
}

func (o *orchestrator) run(ctx context.Context, session *credentials.Session, selected []checks.Check) (*domain.AuditReport, error) {
	provider, err := o.newProvider(ctx, session)
	if err != nil {
		return nil, &Error{Kind: KindProviderUnavailable, Cause: err}
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	report := &domain.AuditReport{
		RunID:     uuid.NewString(),
		ProjectID: session.ProjectID(),
		StartedAt: time.Now().UTC(),
		Results:   make(map[string]domain.CheckResult, len(selected)),
	}
	logger := zerolog.Ctx(ctx).With().
		Str("run_id", report.RunID).
		Str("project", report.ProjectID).
		Logger()
	ctx = logger.WithContext(ctx)

	logger.Info().Int("checks", len(selected)).Msg("audit started")
	o.recorder.RunStarted()

	results := make([]domain.CheckResult, len(selected))
	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, c := range selected {
		g.Go(func() error {
			results[i] = o.runCheck(ctx, provider, report.ProjectID, c)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range selected {
		report.Results[c.Name] = results[i]
	}
	report.FinishedAt = time.Now().UTC()

	logger.Info().
		Strs("failed", report.Failed()).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("audit finished")
	return report, nil
}

type outcome struct {
	findings []domain.Finding
	err      error
}

// runCheck never returns before the check finishes or its deadline passes.
func (o *orchestrator) runCheck(ctx context.Context, p checks.Provider, projectID string, c checks.Check) domain.CheckResult {
	logger := zerolog.Ctx(ctx).With().Str("check", c.Name).Logger()
	ctx = logger.WithContext(ctx)

	cancel := func() {}
	if o.checkTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.checkTimeout)
	}
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &checks.Error{Kind: checks.KindTransient, Cause: fmt.Errorf("check panicked: %v", r)}}
			}
		}()
		findings, err := c.Run(ctx, p, projectID)
		done <- outcome{findings: findings, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}
	elapsed := time.Since(start)

	if out.err != nil {
		failure := checks.Classify(primaryKind(c), out.err)
		resourceKind := failure.ResourceKind
		if resourceKind == "" {
			resourceKind = primaryKind(c)
		}
		logger.Warn().Err(out.err).Str("kind", string(failure.Kind)).Dur("elapsed", elapsed).Msg("check failed")
		o.recorder.CheckFinished(c.Name, string(failure.Kind), 0, elapsed)
		return domain.CheckResult{
			Failure: &domain.CheckFailure{
				Kind:         string(failure.Kind),
				ResourceKind: resourceKind,
				Message:      failure.Error(),
			},
			Duration: elapsed,
		}
	}

	findings := out.findings
	if findings == nil {
		findings = []domain.Finding{}
	}
	logger.Debug().Int("findings", len(findings)).Dur("elapsed", elapsed).Msg("check finished")
	o.recorder.CheckFinished(c.Name, "ok", len(findings), elapsed)
	return domain.CheckResult{Findings: findings, Duration: elapsed}
}

func primaryKind(c checks.Check) string {
	if len(c.ResourceKinds) > 0 {
		return c.ResourceKinds[0]
	}
	return ""
}

type nopRecorder struct{}

func (nopRecorder) RunStarted() {}

func (nopRecorder) CheckFinished(string, string, int, time.Duration) {}
