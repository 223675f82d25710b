package checks

import (
	"context"
	"strconv"
	"strings"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"google.golang.org/api/compute/v1"
)

const (
	runLocationLabel     = "cloud.googleapis.com/location"
	runIngressAnnotation = "run.googleapis.com/ingress"
)

// ListFirewallRules returns every VPC firewall rule as a finding.
func ListFirewallRules(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	rules, err := collector.Collect(ctx, paged(projectID, p.Firewalls))
	if err != nil {
		return nil, Classify(domain.ResourceFirewall, err)
	}

	findings := []domain.Finding{}
	for _, fw := range rules {
		if fw == nil {
			continue
		}
		findings = append(findings, domain.Finding{
			ResourceKind: domain.ResourceFirewall,
			ResourceName: fw.Name,
			Location:     "global",
			Attributes: map[string]string{
				"network":       scopeName(fw.Network),
				"direction":     fw.Direction,
				"priority":      strconv.FormatInt(fw.Priority, 10),
				"source_ranges": strings.Join(fw.SourceRanges, ","),
				"allowed":       allowedRules(fw.Allowed),
				"disabled":      strconv.FormatBool(fw.Disabled),
			},
		})
	}
	return findings, nil
}

// ListLoadBalancers returns every forwarding rule as a finding.
func ListLoadBalancers(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	items, err := collector.CollectGrouped(ctx, grouped(projectID, p.ForwardingRules))
	if err != nil {
		return nil, Classify(domain.ResourceForwardingRule, err)
	}

	findings := []domain.Finding{}
	for _, it := range items {
		fr := it.Item
		if fr == nil {
			continue
		}
		findings = append(findings, domain.Finding{
			ResourceKind: domain.ResourceForwardingRule,
			ResourceName: fr.Name,
			Location:     scopeName(it.Partition),
			Attributes: map[string]string{
				"ip_address": fr.IPAddress,
				"protocol":   fr.IPProtocol,
				"port_range": fr.PortRange,
				"scheme":     fr.LoadBalancingScheme,
				"target":     scopeName(fr.Target),
			},
		})
	}
	return findings, nil
}

// ListServerlessServices returns every Cloud Run service as a finding.
func ListServerlessServices(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	services, err := collector.Collect(ctx, paged(projectID, p.RunServices))
	if err != nil {
		return nil, Classify(domain.ResourceRunService, err)
	}

	findings := []domain.Finding{}
	for _, svc := range services {
		if svc == nil || svc.Metadata == nil {
			continue
		}
		attrs := map[string]string{
			"ingress": svc.Metadata.Annotations[runIngressAnnotation],
		}
		if svc.Status != nil {
			attrs["url"] = svc.Status.Url
		}
		findings = append(findings, domain.Finding{
			ResourceKind: domain.ResourceRunService,
			ResourceName: svc.Metadata.Name,
			Location:     svc.Metadata.Labels[runLocationLabel],
			Attributes:   attrs,
		})
	}
	return findings, nil
}

// allowedRules renders allow entries as "tcp:22,80;udp".
func allowedRules(allowed []*compute.FirewallAllowed) string {
	parts := make([]string, 0, len(allowed))
	for _, a := range allowed {
		if a == nil {
			continue
		}
		entry := a.IPProtocol
		if len(a.Ports) > 0 {
			entry += ":" + strings.Join(a.Ports, ",")
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, ";")
}
