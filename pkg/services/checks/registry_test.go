package checks

import (
	"context"
	"testing"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, Provider, string) ([]domain.Finding, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		check   Check
		wantErr string
	}{
		{name: "empty name", check: Check{Run: noop}, wantErr: "cannot be empty"},
		{name: "no run", check: Check{Name: "x"}, wantErr: "no run function"},
		{name: "ok", check: Check{Name: "x", Run: noop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()

			err := r.Register(tt.check)

			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			_, ok := r.Get(tt.check.Name)
			assert.True(t, ok)
		})
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Check{Name: "dup", Run: noop}))

	err := r.Register(Check{Name: "dup", Run: noop})

	assert.ErrorContains(t, err, "already registered")
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{
		ExposedGKEEndpoints,
		FirewallRules,
		LoadBalancers,
		OwnerServiceAccounts,
		PublicBuckets,
		PublicComputeIPs,
		PublicSQLIPs,
		ServerlessServices,
	}, r.Names())

	catalog := r.Catalog()
	require.Len(t, catalog, 8)
	for _, info := range catalog {
		assert.NotEmpty(t, info.Description, info.Name)
		assert.Len(t, info.ResourceKinds, 1, info.Name)
	}

	_, ok := r.Get("nope")
	assert.False(t, ok)
}
