package checks

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	run "google.golang.org/api/run/v1"
	sqladmin "google.golang.org/api/sqladmin/v1beta4"
)

// Binding is one role binding of an access policy.
type Binding struct {
	Role    string
	Members []string
}

// Provider lists the resources a check inspects. Paged calls follow the
// collector contract: an empty cursor starts the listing, an empty Next ends it.
type Provider interface {
	Instances(ctx context.Context, project, cursor string) (collector.GroupedPage[*compute.Instance], error)
	SQLInstances(ctx context.Context, project, cursor string) (collector.Page[*sqladmin.DatabaseInstance], error)
	Clusters(ctx context.Context, project string) ([]*container.Cluster, error)
	ProjectIAMPolicy(ctx context.Context, project string) ([]Binding, error)
	Buckets(ctx context.Context, project, cursor string) (collector.Page[*storage.BucketAttrs], error)
	BucketIAMPolicy(ctx context.Context, bucket string) ([]Binding, error)
	Firewalls(ctx context.Context, project, cursor string) (collector.Page[*compute.Firewall], error)
	ForwardingRules(ctx context.Context, project, cursor string) (collector.GroupedPage[*compute.ForwardingRule], error)
	RunServices(ctx context.Context, project, cursor string) (collector.Page[*run.Service], error)
}

// paged binds a project to a cursor-taking provider method.
func paged[T any](project string, fn func(context.Context, string, string) (collector.Page[T], error)) collector.PageFunc[T] {
	return func(ctx context.Context, cursor string) (collector.Page[T], error) {
		return fn(ctx, project, cursor)
	}
}

func grouped[T any](project string, fn func(context.Context, string, string) (collector.GroupedPage[T], error)) collector.GroupedPageFunc[T] {
	return func(ctx context.Context, cursor string) (collector.GroupedPage[T], error) {
		return fn(ctx, project, cursor)
	}
}
