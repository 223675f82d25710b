package checks

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"github.com/stretchr/testify/mock"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/container/v1"
	run "google.golang.org/api/run/v1"
	sqladmin "google.golang.org/api/sqladmin/v1beta4"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Instances(ctx context.Context, project, cursor string) (collector.GroupedPage[*compute.Instance], error) {
	args := m.Called(ctx, project, cursor)
	return args.Get(0).(collector.GroupedPage[*compute.Instance]), args.Error(1)
}

func (m *mockProvider) SQLInstances(ctx context.Context, project, cursor string) (collector.Page[*sqladmin.DatabaseInstance], error) {
	args := m.Called(ctx, project, cursor)
	return args.Get(0).(collector.Page[*sqladmin.DatabaseInstance]), args.Error(1)
}

func (m *mockProvider) Clusters(ctx context.Context, project string) ([]*container.Cluster, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*container.Cluster), args.Error(1)
}

func (m *mockProvider) ProjectIAMPolicy(ctx context.Context, project string) ([]Binding, error) {
	args := m.Called(ctx, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Binding), args.Error(1)
}

func (m *mockProvider) Buckets(ctx context.Context, project, cursor string) (collector.Page[*storage.BucketAttrs], error) {
	args := m.Called(ctx, project, cursor)
	return args.Get(0).(collector.Page[*storage.BucketAttrs]), args.Error(1)
}

func (m *mockProvider) BucketIAMPolicy(ctx context.Context, bucket string) ([]Binding, error) {
	args := m.Called(ctx, bucket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Binding), args.Error(1)
}

func (m *mockProvider) Firewalls(ctx context.Context, project, cursor string) (collector.Page[*compute.Firewall], error) {
	args := m.Called(ctx, project, cursor)
	return args.Get(0).(collector.Page[*compute.Firewall]), args.Error(1)
}

func (m *mockProvider) ForwardingRules(ctx context.Context, project, cursor string) (collector.GroupedPage[*compute.ForwardingRule], error) {
	args := m.Called(ctx, project, cursor)
	return args.Get(0).(collector.GroupedPage[*compute.ForwardingRule]), args.Error(1)
}

func (m *mockProvider) RunServices(ctx context.Context, project, cursor string) (collector.Page[*run.Service], error) {
	args := m.Called(ctx, project, cursor)
	return args.Get(0).(collector.Page[*run.Service]), args.Error(1)
}
