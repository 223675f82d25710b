package api

import (
	"encoding/json"
	"time"
)

type Finding struct {
	ResourceKind string            `json:"resource_kind" yaml:"resource_kind"`
	ResourceName string            `json:"resource_name" yaml:"resource_name"`
	Location     string            `json:"location,omitempty" yaml:"location,omitempty"`
	Attributes   map[string]string `json:"attributes" yaml:"attributes"`
}

type ErrorDescriptor struct {
	Kind         string `json:"kind" yaml:"kind"`
	ResourceKind string `json:"resource_kind,omitempty" yaml:"resource_kind,omitempty"`
	Message      string `json:"message" yaml:"message"`
}

type CheckStatus string

const (
	CheckStatusOK     CheckStatus = "ok"
	CheckStatusFailed CheckStatus = "failed"
)

// CheckResult carries findings for a successful check (an empty list when
// nothing was detected) or an error descriptor for a failed one.
type CheckResult struct {
	Status     CheckStatus      `json:"status" yaml:"status"`
	Findings   []Finding        `json:"findings,omitzero" yaml:"findings,omitempty"`
	Error      *ErrorDescriptor `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs int64            `json:"duration_ms" yaml:"duration_ms"`
}

type AuditReport struct {
	RunID      string                 `json:"run_id" yaml:"run_id"`
	ProjectID  string                 `json:"project_id" yaml:"project_id"`
	StartedAt  time.Time              `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time              `json:"finished_at" yaml:"finished_at"`
	Failed     []string               `json:"failed" yaml:"failed"`
	Results    map[string]CheckResult `json:"results" yaml:"results"`
}

type CheckInfo struct {
	Name          string   `json:"name" yaml:"name"`
	ResourceKinds []string `json:"resource_kinds" yaml:"resource_kinds"`
	Description   string   `json:"description" yaml:"description"`
}

// AuditRequest carries either inline key material or a secret locator.
type AuditRequest struct {
	Credentials json.RawMessage `json:"credentials,omitempty"`
	Locator     string          `json:"locator,omitempty"`
	Project     string          `json:"project,omitempty"`
	Checks      []string        `json:"checks,omitempty"`
}

type SecretResponse struct {
	Locator string `json:"locator"`
}

type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error ErrorDescriptor `json:"error"`
}
