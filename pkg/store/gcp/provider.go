// Package gcp lists project resources through the Google Cloud APIs.
package gcp

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/iam"
	"cloud.google.com/go/storage"
	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/checks"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"github.com/de-tools/cloud-audit/pkg/services/credentials"
	"github.com/rs/zerolog"
	"google.golang.org/api/cloudresourcemanager/v1"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	run "google.golang.org/api/run/v1"
	sqladmin "google.golang.org/api/sqladmin/v1beta4"
)

const bucketPageSize = 200

// Provider implements checks.Provider against the live APIs.
type Provider struct {
	compute   *compute.Service
	sql       *sqladmin.Service
	container *container.Service
	crm       *cloudresourcemanager.Service
	storage   *storage.Client
	run       *run.APIService
}

func NewProvider(ctx context.Context, opts ...option.ClientOption) (*Provider, error) {
	computeSvc, err := compute.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}
	sqlSvc, err := sqladmin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sql admin client: %w", err)
	}
	containerSvc, err := container.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create container client: %w", err)
	}
	crmSvc, err := cloudresourcemanager.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource manager client: %w", err)
	}
	runSvc, err := run.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud run client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Provider{
		compute:   computeSvc,
		sql:       sqlSvc,
		container: containerSvc,
		crm:       crmSvc,
		storage:   storageClient,
		run:       runSvc,
	}, nil
}

// Factory builds a Provider authenticated as the session's identity.
func Factory(ctx context.Context, session *credentials.Session) (checks.Provider, error) {
	return NewProvider(ctx, session.ClientOptions()...)
}

func (p *Provider) Close() error {
	return p.storage.Close()
}

func (p *Provider) Instances(ctx context.Context, project, cursor string) (collector.GroupedPage[*compute.Instance], error) {
	resp, err := p.compute.Instances.AggregatedList(project).PageToken(cursor).Context(ctx).Do()
	if err != nil {
		return collector.GroupedPage[*compute.Instance]{}, err
	}

	page := collector.GroupedPage[*compute.Instance]{Next: resp.NextPageToken}
	for _, key := range sortedKeys(resp.Items) {
		page.Groups = append(page.Groups, collector.Group[*compute.Instance]{
			Key:   key,
			Items: resp.Items[key].Instances,
		})
	}
	return page, nil
}

func (p *Provider) SQLInstances(ctx context.Context, project, cursor string) (collector.Page[*sqladmin.DatabaseInstance], error) {
	resp, err := p.sql.Instances.List(project).PageToken(cursor).Context(ctx).Do()
	if err != nil {
		return collector.Page[*sqladmin.DatabaseInstance]{}, err
	}
	return collector.Page[*sqladmin.DatabaseInstance]{Items: resp.Items, Next: resp.NextPageToken}, nil
}

func (p *Provider) Clusters(ctx context.Context, project string) ([]*container.Cluster, error) {
	parent := fmt.Sprintf("projects/%s/locations/-", project)
	resp, err := p.container.Projects.Locations.Clusters.List(parent).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	// Unreachable zones make the listing incomplete.
	if len(resp.MissingZones) > 0 {
		zerolog.Ctx(ctx).Warn().
			Strs("missing_zones", resp.MissingZones).
			Int("clusters", len(resp.Clusters)).
			Msg("cluster listing is incomplete")
		return nil, &checks.Error{
			Kind:         checks.KindTransient,
			ResourceKind: domain.ResourceGKECluster,
			Cause:        fmt.Errorf("clusters in zones %s could not be listed", strings.Join(resp.MissingZones, ", ")),
		}
	}
	return resp.Clusters, nil
}

func (p *Provider) ProjectIAMPolicy(ctx context.Context, project string) ([]checks.Binding, error) {
	policy, err := p.crm.Projects.GetIamPolicy(project, &cloudresourcemanager.GetIamPolicyRequest{}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	bindings := make([]checks.Binding, 0, len(policy.Bindings))
	for _, b := range policy.Bindings {
		bindings = append(bindings, checks.Binding{Role: b.Role, Members: b.Members})
	}
	return bindings, nil
}

func (p *Provider) Buckets(ctx context.Context, project, cursor string) (collector.Page[*storage.BucketAttrs], error) {
	var attrs []*storage.BucketAttrs
	next, err := iterator.NewPager(p.storage.Buckets(ctx, project), bucketPageSize, cursor).NextPage(&attrs)
	if err != nil {
		return collector.Page[*storage.BucketAttrs]{}, err
	}
	return collector.Page[*storage.BucketAttrs]{Items: attrs, Next: next}, nil
}

func (p *Provider) BucketIAMPolicy(ctx context.Context, bucket string) ([]checks.Binding, error) {
	policy, err := p.storage.Bucket(bucket).IAM().Policy(ctx)
	if err != nil {
		return nil, err
	}
	return bindingsOf(policy), nil
}

func (p *Provider) Firewalls(ctx context.Context, project, cursor string) (collector.Page[*compute.Firewall], error) {
	resp, err := p.compute.Firewalls.List(project).PageToken(cursor).Context(ctx).Do()
	if err != nil {
		return collector.Page[*compute.Firewall]{}, err
	}
	return collector.Page[*compute.Firewall]{Items: resp.Items, Next: resp.NextPageToken}, nil
}

func (p *Provider) ForwardingRules(ctx context.Context, project, cursor string) (collector.GroupedPage[*compute.ForwardingRule], error) {
	resp, err := p.compute.ForwardingRules.AggregatedList(project).PageToken(cursor).Context(ctx).Do()
	if err != nil {
		return collector.GroupedPage[*compute.ForwardingRule]{}, err
	}

	page := collector.GroupedPage[*compute.ForwardingRule]{Next: resp.NextPageToken}
	for _, key := range sortedKeys(resp.Items) {
		page.Groups = append(page.Groups, collector.Group[*compute.ForwardingRule]{
			Key:   key,
			Items: resp.Items[key].ForwardingRules,
		})
	}
	return page, nil
}

func (p *Provider) RunServices(ctx context.Context, project, cursor string) (collector.Page[*run.Service], error) {
	parent := fmt.Sprintf("projects/%s/locations/-", project)
	call := p.run.Projects.Locations.Services.List(parent).Context(ctx)
	if cursor != "" {
		call = call.Continue(cursor)
	}
	resp, err := call.Do()
	if err != nil {
		return collector.Page[*run.Service]{}, err
	}

	page := collector.Page[*run.Service]{Items: resp.Items}
	if resp.Metadata != nil {
		page.Next = resp.Metadata.Continue
	}
	return page, nil
}

func bindingsOf(policy *iam.Policy) []checks.Binding {
	roles := policy.Roles()
	bindings := make([]checks.Binding, 0, len(roles))
	for _, role := range roles {
		bindings = append(bindings, checks.Binding{Role: string(role), Members: policy.Members(role)})
	}
	sort.Slice(bindings, func(i, j int) bool { return bindings[i].Role < bindings[j].Role })
	return bindings
}

// sortedKeys gives aggregated listings a stable partition order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
