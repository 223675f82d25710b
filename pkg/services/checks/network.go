package checks

import (
	"context"
	"strings"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"google.golang.org/api/container/v1"
)

// Check names.
const (
	PublicComputeIPs     = "public_compute_ips"
	PublicSQLIPs         = "public_sql_ips"
	ExposedGKEEndpoints  = "exposed_gke_endpoints"
	OwnerServiceAccounts = "owner_service_accounts"
	PublicBuckets        = "public_buckets"
	FirewallRules        = "firewall_rules"
	LoadBalancers        = "load_balancers"
	ServerlessServices   = "serverless_services"
)

// PublicComputeInstances reports every network interface access config
// carrying an external NAT address.
func PublicComputeInstances(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	items, err := collector.CollectGrouped(ctx, grouped(projectID, p.Instances))
	if err != nil {
		return nil, Classify(domain.ResourceComputeInstance, err)
	}

	findings := []domain.Finding{}
	for _, it := range items {
		inst := it.Item
		if inst == nil {
			continue
		}
		for _, nic := range inst.NetworkInterfaces {
			if nic == nil {
				continue
			}
			for _, ac := range nic.AccessConfigs {
				if ac == nil || ac.NatIP == "" {
					continue
				}
				findings = append(findings, domain.Finding{
					ResourceKind: domain.ResourceComputeInstance,
					ResourceName: inst.Name,
					Location:     scopeName(it.Partition),
					Attributes:   map[string]string{"public_ip": ac.NatIP},
				})
			}
		}
	}
	return findings, nil
}

// PublicSQLInstances reports SQL instances exposing a primary address.
func PublicSQLInstances(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	instances, err := collector.Collect(ctx, paged(projectID, p.SQLInstances))
	if err != nil {
		return nil, Classify(domain.ResourceSQLInstance, err)
	}

	findings := []domain.Finding{}
	for _, inst := range instances {
		if inst == nil {
			continue
		}
		for _, ip := range inst.IpAddresses {
			if ip == nil || !strings.EqualFold(ip.Type, "PRIMARY") {
				continue
			}
			findings = append(findings, domain.Finding{
				ResourceKind: domain.ResourceSQLInstance,
				ResourceName: inst.Name,
				Location:     inst.Region,
				Attributes: map[string]string{
					"public_ip": ip.IpAddress,
					"ip_type":   ip.Type,
				},
			})
		}
	}
	return findings, nil
}

// ExposedClusters reports clusters with an endpoint whose nodes are not private.
func ExposedClusters(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	clusters, err := collector.Collect(ctx, collector.Single(func(ctx context.Context) ([]*container.Cluster, error) {
		return p.Clusters(ctx, projectID)
	}))
	if err != nil {
		return nil, Classify(domain.ResourceGKECluster, err)
	}

	findings := []domain.Finding{}
	for _, c := range clusters {
		if c == nil || c.Endpoint == "" {
			continue
		}
		if c.PrivateClusterConfig != nil && c.PrivateClusterConfig.EnablePrivateNodes {
			continue
		}
		findings = append(findings, domain.Finding{
			ResourceKind: domain.ResourceGKECluster,
			ResourceName: c.Name,
			Location:     c.Location,
			Attributes:   map[string]string{"endpoint": c.Endpoint},
		})
	}
	return findings, nil
}

// scopeName turns an aggregated list key such as "zones/us-central1-a" into
// the bare location name.
func scopeName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
