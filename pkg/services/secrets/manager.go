// Package secrets stores uploaded credential material in a secret store and
// resolves locators back into material.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	DefaultPrefix  = "audit-credentials"
	latestVersion  = "/versions/latest"
	cleanupTimeout = 30 * time.Second
)

// Store is the secret store boundary. Implementations translate their own
// not-found and permission failures into ErrStoreNotFound and
// ErrStorePermissionDenied.
type Store interface {
	CreateSecret(ctx context.Context, parent, id string) (string, error)
	AddVersion(ctx context.Context, secret string, payload []byte) (string, error)
	Access(ctx context.Context, name string) ([]byte, error)
	DeleteSecret(ctx context.Context, secret string) error
}

var (
	ErrStoreNotFound         = errors.New("secret store: not found")
	ErrStorePermissionDenied = errors.New("secret store: permission denied")
)

type Manager struct {
	store  Store
	parent string
	prefix string
}

// NewManager stores secrets under projects/<project>.
func NewManager(store Store, project, prefix string) *Manager {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Manager{
		store:  store,
		parent: "projects/" + project,
		prefix: prefix,
	}
}

// Store validates material and writes it as the first version of a new secret.
// The returned locator names that version.
func (m *Manager) Store(ctx context.Context, material []byte) (string, error) {
	logger := zerolog.Ctx(ctx)

	parsed, err := credentials.ParseMaterial(material)
	if err != nil {
		return "", &Error{Kind: KindMalformedMaterial, Cause: err}
	}

	id := fmt.Sprintf("%s-%s", m.prefix, uuid.NewString())
	secret, err := m.store.CreateSecret(ctx, m.parent, id)
	if err != nil {
		return "", classify(fmt.Sprintf("create %s/secrets/%s", m.parent, id), err)
	}

	version, err := m.store.AddVersion(ctx, secret, material)
	if err != nil {
		// the caller's context is often the reason the write failed
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if delErr := m.store.DeleteSecret(cleanupCtx, secret); delErr != nil {
			logger.Error().
				Err(delErr).
				Str("secret", secret).
				Msg("failed to remove secret without payload")
			err = errors.Join(err, delErr)
		}
		return "", classify(fmt.Sprintf("add version to %s", secret), err)
	}

	logger.Info().
		Str("secret", secret).
		Str("project", parsed.ProjectID).
		Msg("credential material stored")
	return version, nil
}

// Retrieve returns the material a locator points at, validated.
func (m *Manager) Retrieve(ctx context.Context, locator string) ([]byte, error) {
	name := normalizeLocator(locator)
	if name == "" {
		return nil, &Error{Kind: KindNotFound, Locator: locator, Message: "empty locator"}
	}

	payload, err := m.store.Access(ctx, name)
	if err != nil {
		e := classify("access", err)
		e.Locator = name
		return nil, e
	}

	if _, err := credentials.ParseMaterial(payload); err != nil {
		return nil, &Error{Kind: KindMalformedMaterial, Locator: name, Cause: err}
	}
	return payload, nil
}

func normalizeLocator(locator string) string {
	locator = strings.TrimSpace(locator)
	if locator == "" || strings.Contains(locator, "/versions/") {
		return locator
	}
	return strings.TrimSuffix(locator, "/") + latestVersion
}

func classify(message string, err error) *Error {
	kind := KindUnavailable
	switch {
	case errors.Is(err, ErrStoreNotFound):
		kind = KindNotFound
	case errors.Is(err, ErrStorePermissionDenied):
		kind = KindAccessDenied
	}
	return &Error{Kind: kind, Message: message, Cause: err}
}
