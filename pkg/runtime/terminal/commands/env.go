package commands

import (
	"context"
	"time"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/config"
)

type Auditor interface {
	Audit(ctx context.Context, ref domain.CredentialReference, names []string) (*domain.AuditReport, error)
}

type SecretStore interface {
	Store(ctx context.Context, material []byte) (string, error)
}

type TokenIssuer interface {
	Issue(username, password string) (string, time.Time, error)
}

// Env exposes the services configured for the current invocation. It is
// consulted when a command runs, after persistent flags are parsed.
type Env interface {
	Auditor() Auditor
	Catalog() []domain.CheckInfo
	Profiles() (config.Registry, error)
	Secrets() (SecretStore, error)
	Tokens() TokenIssuer
}
