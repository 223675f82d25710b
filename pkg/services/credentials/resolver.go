package credentials

import (
	"context"
	"fmt"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
)

// ReadOnlyScope is enough for every listing and getIamPolicy call the checks make.
const ReadOnlyScope = "https://www.googleapis.com/auth/cloud-platform.read-only"

// SecretRetriever exchanges a locator for previously stored material.
type SecretRetriever interface {
	Retrieve(ctx context.Context, locator string) ([]byte, error)
}

type Resolver struct {
	secrets SecretRetriever
	scopes  []string
}

// NewResolver creates a resolver. secrets may be nil when locators are not
// supported by the deployment.
func NewResolver(secrets SecretRetriever, scopes ...string) *Resolver {
	if len(scopes) == 0 {
		scopes = []string{ReadOnlyScope}
	}
	return &Resolver{secrets: secrets, scopes: scopes}
}

// Resolve turns a credential reference into a project-scoped Session.
func (r *Resolver) Resolve(ctx context.Context, ref domain.CredentialReference) (*Session, error) {
	hasMaterial := len(ref.Material) > 0
	hasLocator := ref.Locator != ""

	switch {
	case hasMaterial && hasLocator:
		return nil, malformed("reference carries both inline material and a locator")
	case !hasMaterial && !hasLocator:
		return nil, malformed("reference carries neither inline material nor a locator")
	}

	data := ref.Material
	if hasLocator {
		if r.secrets == nil {
			return nil, &Error{Kind: KindSecretUnavailable, Message: "no secret store configured"}
		}
		retrieved, err := r.secrets.Retrieve(ctx, ref.Locator)
		if err != nil {
			return nil, &Error{
				Kind:    KindSecretUnavailable,
				Message: fmt.Sprintf("retrieve %s", ref.Locator),
				Cause:   err,
			}
		}
		data = retrieved
	}

	m, err := ParseMaterial(data)
	if err != nil {
		return nil, err
	}

	if ref.ExpectedProject != "" && ref.ExpectedProject != m.ProjectID {
		return nil, &Error{
			Kind:    KindProjectMismatch,
			Message: fmt.Sprintf("expected project %q, credentials belong to %q", ref.ExpectedProject, m.ProjectID),
		}
	}

	cfg := r.jwtConfig(m)
	zerolog.Ctx(ctx).Debug().
		Str("project", m.ProjectID).
		Str("identity", m.ClientEmail).
		Msg("credential resolved")

	return NewSession(m.ProjectID, m.ClientEmail, cfg.TokenSource(ctx)), nil
}

func (r *Resolver) jwtConfig(m *Material) *jwt.Config {
	tokenURL := m.TokenURI
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	return &jwt.Config{
		Email:        m.ClientEmail,
		PrivateKey:   []byte(m.PrivateKey),
		PrivateKeyID: m.PrivateKeyID,
		Scopes:       append([]string(nil), r.scopes...),
		TokenURL:     tokenURL,
	}
}
