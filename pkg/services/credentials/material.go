package credentials

import (
	"encoding/json"
	"strings"
)

const serviceAccountDomain = ".iam.gserviceaccount.com"

// Material is a parsed service account key. Fields not listed here are kept in
// Raw and handed to the auth library untouched.
type Material struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`

	Raw []byte `json:"-"`
}

// ParseMaterial validates that data is structured key material carrying an
// identity and a signing key, and that a project can be derived from it.
func ParseMaterial(data []byte) (*Material, error) {
	var m Material
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &Error{Kind: KindMalformedMaterial, Message: "payload is not valid JSON", Cause: err}
	}

	var missing []string
	if strings.TrimSpace(m.ClientEmail) == "" {
		missing = append(missing, "client_email")
	}
	if strings.TrimSpace(m.PrivateKey) == "" {
		missing = append(missing, "private_key")
	}
	if len(missing) > 0 {
		return nil, malformed("missing required field(s) %s", strings.Join(missing, ", "))
	}

	if m.ProjectID == "" {
		m.ProjectID = projectFromEmail(m.ClientEmail)
	}
	if m.ProjectID == "" {
		return nil, malformed("cannot derive project from identity %q", m.ClientEmail)
	}

	m.Raw = data
	return &m, nil
}

// projectFromEmail extracts "proj" out of "name@proj.iam.gserviceaccount.com".
func projectFromEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	domain := email[at+1:]
	if !strings.HasSuffix(domain, serviceAccountDomain) {
		return ""
	}
	return strings.TrimSuffix(domain, serviceAccountDomain)
}
