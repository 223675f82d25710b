// Package secretmanager backs the secrets service with Google Secret Manager.
package secretmanager

import (
	"context"
	"fmt"

	sm "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/de-tools/cloud-audit/pkg/services/secrets"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const managedByLabel = "cloud-audit"

type Store struct {
	client *sm.Client
}

func NewStore(ctx context.Context, opts ...option.ClientOption) (*Store, error) {
	client, err := sm.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) CreateSecret(ctx context.Context, parent, id string) (string, error) {
	secret, err := s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   parent,
		SecretId: id,
		Secret: &secretmanagerpb.Secret{
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
			Labels: map[string]string{"managed-by": managedByLabel},
		},
	})
	if err != nil {
		return "", translate(err)
	}
	return secret.GetName(), nil
}

func (s *Store) AddVersion(ctx context.Context, secret string, payload []byte) (string, error) {
	version, err := s.client.AddSecretVersion(ctx, &secretmanagerpb.AddSecretVersionRequest{
		Parent:  secret,
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	})
	if err != nil {
		return "", translate(err)
	}
	return version.GetName(), nil
}

func (s *Store) Access(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, translate(err)
	}
	return resp.GetPayload().GetData(), nil
}

func (s *Store) DeleteSecret(ctx context.Context, secret string) error {
	if err := s.client.DeleteSecret(ctx, &secretmanagerpb.DeleteSecretRequest{Name: secret}); err != nil {
		return translate(err)
	}
	return nil
}

func translate(err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", secrets.ErrStoreNotFound, err)
	case codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", secrets.ErrStorePermissionDenied, err)
	default:
		return err
	}
}
