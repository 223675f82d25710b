package domain

import "time"

// Resource kinds reported in findings.
const (
	ResourceComputeInstance = "compute_instance"
	ResourceSQLInstance     = "sql_instance"
	ResourceGKECluster      = "gke_cluster"
	ResourceProjectIAM      = "project_iam_binding"
	ResourceBucket          = "storage_bucket"
	ResourceFirewall        = "firewall_rule"
	ResourceForwardingRule  = "forwarding_rule"
	ResourceRunService      = "cloud_run_service"
)

// Finding is one normalized detection record for a resource.
type Finding struct {
	ResourceKind string
	ResourceName string
	Location     string
	Attributes   map[string]string
}

// CheckFailure describes why a check did not produce findings.
type CheckFailure struct {
	Kind         string
	ResourceKind string
	Message      string
}

// CheckResult holds exactly one of Findings or Failure.
type CheckResult struct {
	Findings []Finding
	Failure  *CheckFailure
	Duration time.Duration
}

func (r CheckResult) Failed() bool {
	return r.Failure != nil
}

type AuditReport struct {
	RunID      string
	ProjectID  string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    map[string]CheckResult // check name -> result
}

// Failed returns the names of checks that ended in failure.
func (r *AuditReport) Failed() []string {
	var names []string
	for name, res := range r.Results {
		if res.Failed() {
			names = append(names, name)
		}
	}
	return names
}
