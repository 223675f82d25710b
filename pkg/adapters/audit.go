package adapters

import (
	"errors"
	"sort"

	"github.com/de-tools/cloud-audit/pkg/models/api"
	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/audit"
	"github.com/de-tools/cloud-audit/pkg/services/auth"
	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/de-tools/cloud-audit/pkg/services/secrets"
)

func MapFindingDomainToApi(f domain.Finding) api.Finding {
	attrs := make(map[string]string, len(f.Attributes))
	for k, v := range f.Attributes {
		attrs[k] = v
	}
	return api.Finding{
		ResourceKind: f.ResourceKind,
		ResourceName: f.ResourceName,
		Location:     f.Location,
		Attributes:   attrs,
	}
}

func MapCheckResultDomainToApi(r domain.CheckResult) api.CheckResult {
	res := api.CheckResult{DurationMs: r.Duration.Milliseconds()}
	if r.Failure != nil {
		res.Status = api.CheckStatusFailed
		res.Error = &api.ErrorDescriptor{
			Kind:         r.Failure.Kind,
			ResourceKind: r.Failure.ResourceKind,
			Message:      r.Failure.Message,
		}
		return res
	}

	res.Status = api.CheckStatusOK
	res.Findings = make([]api.Finding, 0, len(r.Findings))
	for _, f := range r.Findings {
		res.Findings = append(res.Findings, MapFindingDomainToApi(f))
	}
	return res
}

func MapAuditReportDomainToApi(r domain.AuditReport) api.AuditReport {
	failed := r.Failed()
	sort.Strings(failed)

	res := api.AuditReport{
		RunID:      r.RunID,
		ProjectID:  r.ProjectID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Failed:     append([]string{}, failed...),
		Results:    make(map[string]api.CheckResult, len(r.Results)),
	}
	for name, result := range r.Results {
		res.Results[name] = MapCheckResultDomainToApi(result)
	}
	return res
}

func MapCheckInfoDomainToApi(c domain.CheckInfo) api.CheckInfo {
	return api.CheckInfo{
		Name:          c.Name,
		ResourceKinds: append([]string{}, c.ResourceKinds...),
		Description:   c.Description,
	}
}

// MapErrorToApi describes a run-level error by its typed kind. Errors of no
// known type are reported as "internal".
func MapErrorToApi(err error) api.ErrorDescriptor {
	desc := api.ErrorDescriptor{Kind: "internal", Message: err.Error()}

	var (
		credErr   *credentials.Error
		secretErr *secrets.Error
		auditErr  *audit.Error
		authErr   *auth.Error
	)
	switch {
	case errors.As(err, &auditErr):
		desc.Kind = string(auditErr.Kind)
	case errors.As(err, &credErr):
		desc.Kind = string(credErr.Kind)
	case errors.As(err, &secretErr):
		desc.Kind = "secret_" + string(secretErr.Kind)
	case errors.As(err, &authErr):
		desc.Kind = "token_" + string(authErr.Kind)
	}
	return desc
}
