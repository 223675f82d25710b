package credentials

import (
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

// Session is an authenticated handle bound to one project. It is created for
// a single audit run, shared read-only by that run's checks, and never cached.
type Session struct {
	projectID   string
	identity    string
	tokenSource oauth2.TokenSource
}

func NewSession(projectID, identity string, ts oauth2.TokenSource) *Session {
	return &Session{projectID: projectID, identity: identity, tokenSource: ts}
}

func (s *Session) ProjectID() string {
	return s.projectID
}

// Identity is the service account email the session authenticates as.
func (s *Session) Identity() string {
	return s.identity
}

// ClientOptions returns the options every provider client of this session is
// built with.
func (s *Session) ClientOptions() []option.ClientOption {
	if s.tokenSource == nil {
		return []option.ClientOption{option.WithoutAuthentication()}
	}
	return []option.ClientOption{option.WithTokenSource(s.tokenSource)}
}
