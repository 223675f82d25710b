package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_ValidYAML_PopulatesAllFields(t *testing.T) {
	// Given
	path := writeFile(t, "audit.yaml", `server:
  host: "127.0.0.1"
  port: 9090
  shutdown_timeout: 5s
auth:
  signing_key: "k"
  token_ttl: 30m
  users:
    alice: "$2a$10$hash"
audit:
  check_timeout: 45s
  concurrency: 4
secrets:
  project: "vault"
  prefix: "creds"
profiles:
  path: "/etc/cloudaudit"
`)

	// When
	cfg, err := LoadConfig(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "k", cfg.Auth.SigningKey)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, map[string]string{"alice": "$2a$10$hash"}, cfg.Auth.Users)
	assert.Equal(t, 45*time.Second, cfg.Audit.CheckTimeout)
	assert.Equal(t, 4, cfg.Audit.Concurrency)
	assert.Equal(t, "vault", cfg.Secrets.Project)
	assert.Equal(t, "creds", cfg.Secrets.Prefix)
	assert.Equal(t, "/etc/cloudaudit", cfg.Profiles.Path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	// When
	cfg, err := LoadConfig("")

	// Then
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Auth.SigningKey)
	assert.Equal(t, 2*time.Minute, cfg.Audit.CheckTimeout)
	assert.Equal(t, "audit-credentials", cfg.Secrets.Prefix)
	assert.Equal(t, profileFileName, filepath.Base(cfg.Profiles.Path))
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	// Given
	t.Setenv("AUDIT_SERVER_PORT", "7000")
	t.Setenv("AUDIT_AUTH_SIGNING_KEY", "from-env")
	path := writeFile(t, "audit.yaml", "server:\n  port: 9090\n")

	// When
	cfg, err := LoadConfig(path)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Auth.SigningKey)
}

func TestLoadConfig_InvalidYAML_ReturnsError(t *testing.T) {
	// Given
	path := writeFile(t, "bad.yaml", "server: [unterminated")

	// When
	_, err := LoadConfig(path)

	// Then
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.ErrorContains(t, err, "failed to read config file")
}

func TestProfiles(t *testing.T) {
	// Given
	keyPath := writeFile(t, "key.json", `{"client_email":"sa@p.iam.gserviceaccount.com"}`)
	path := writeFile(t, "cloudaudit", `[prod]
key_file = `+keyPath+`
project = prod-project

[vaulted]
locator = projects/vault/secrets/creds-1/versions/2

[broken]
project = only-project

[empty]
`)
	registry, err := NewRegistry(path)
	require.NoError(t, err)
	ctx := context.Background()

	// When
	names, err := registry.GetProfiles(ctx)

	// Then
	require.NoError(t, err)
	assert.Equal(t, []string{"prod", "vaulted", "broken"}, names)

	prod, err := registry.GetProfile(ctx, "prod")
	require.NoError(t, err)
	ref, err := prod.Reference()
	require.NoError(t, err)
	assert.Equal(t, "prod-project", ref.ExpectedProject)
	assert.JSONEq(t, `{"client_email":"sa@p.iam.gserviceaccount.com"}`, string(ref.Material))
	assert.Empty(t, ref.Locator)

	vaulted, err := registry.GetProfile(ctx, "vaulted")
	require.NoError(t, err)
	ref, err = vaulted.Reference()
	require.NoError(t, err)
	assert.Equal(t, "projects/vault/secrets/creds-1/versions/2", ref.Locator)
	assert.Nil(t, ref.Material)

	_, err = registry.GetProfile(ctx, "broken")
	assert.ErrorContains(t, err, "exactly one")

	_, err = registry.GetProfile(ctx, "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestProfile_ReferenceMissingKeyFile(t *testing.T) {
	p := &Profile{Name: "x", KeyFile: filepath.Join(t.TempDir(), "gone.json")}

	_, err := p.Reference()

	assert.ErrorContains(t, err, "failed to read key file")
}
