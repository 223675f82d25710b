package checks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
)

// CheckFunc inspects one resource category of a project.
type CheckFunc func(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error)

// Check is a registered, named audit check.
type Check struct {
	Name          string
	Description   string
	ResourceKinds []string
	Run           CheckFunc
}

// Registry maps check names to checks
type Registry interface {
	// Register adds a new check
	Register(check Check) error
	// Get returns the check registered under name
	Get(name string) (Check, bool)
	// Names returns the registered check names in sorted order
	Names() []string
	// Catalog describes every registered check
	Catalog() []domain.CheckInfo
}

type registry struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewRegistry creates an empty check registry
func NewRegistry() Registry {
	return &registry{
		checks: make(map[string]Check),
	}
}

func (r *registry) Register(check Check) error {
	if check.Name == "" {
		return fmt.Errorf("check name cannot be empty")
	}
	if check.Run == nil {
		return fmt.Errorf("check %q has no run function", check.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[check.Name]; exists {
		return fmt.Errorf("check %q is already registered", check.Name)
	}

	r.checks[check.Name] = check
	return nil
}

func (r *registry) Get(name string) (Check, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	check, ok := r.checks[name]
	return check, ok
}

func (r *registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.checks))
	for name := range r.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry) Catalog() []domain.CheckInfo {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]domain.CheckInfo, 0, len(names))
	for _, name := range names {
		c := r.checks[name]
		infos = append(infos, domain.CheckInfo{
			Name:          c.Name,
			ResourceKinds: append([]string(nil), c.ResourceKinds...),
			Description:   c.Description,
		})
	}
	return infos
}

// Builtin returns the checks shipped with the auditor.
func Builtin() []Check {
	return []Check{
		{
			Name:          PublicComputeIPs,
			Description:   "Compute instances with an external NAT address",
			ResourceKinds: []string{domain.ResourceComputeInstance},
			Run:           PublicComputeInstances,
		},
		{
			Name:          PublicSQLIPs,
			Description:   "Cloud SQL instances with a primary public address",
			ResourceKinds: []string{domain.ResourceSQLInstance},
			Run:           PublicSQLInstances,
		},
		{
			Name:          ExposedGKEEndpoints,
			Description:   "GKE clusters with an endpoint and public nodes",
			ResourceKinds: []string{domain.ResourceGKECluster},
			Run:           ExposedClusters,
		},
		{
			Name:          OwnerServiceAccounts,
			Description:   "Service accounts holding the project owner role",
			ResourceKinds: []string{domain.ResourceProjectIAM},
			Run:           OwnerAccounts,
		},
		{
			Name:          PublicBuckets,
			Description:   "Storage buckets readable by all users or all authenticated users",
			ResourceKinds: []string{domain.ResourceBucket},
			Run:           PublicStorageBuckets,
		},
		{
			Name:          FirewallRules,
			Description:   "Inventory of VPC firewall rules",
			ResourceKinds: []string{domain.ResourceFirewall},
			Run:           ListFirewallRules,
		},
		{
			Name:          LoadBalancers,
			Description:   "Inventory of forwarding rules fronting load balancers",
			ResourceKinds: []string{domain.ResourceForwardingRule},
			Run:           ListLoadBalancers,
		},
		{
			Name:          ServerlessServices,
			Description:   "Inventory of Cloud Run services",
			ResourceKinds: []string{domain.ResourceRunService},
			Run:           ListServerlessServices,
		},
	}
}

// DefaultRegistry returns a registry holding every builtin check.
func DefaultRegistry() Registry {
	r := NewRegistry()
	for _, c := range Builtin() {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}
