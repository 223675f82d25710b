package checks

import (
	"context"
	"errors"
	"strings"

	"github.com/de-tools/cloud-audit/pkg/models/domain"
	"github.com/de-tools/cloud-audit/pkg/services/collector"
	"github.com/rs/zerolog"
)

const (
	ownerRole             = "roles/owner"
	serviceAccountPrefix  = "serviceAccount:"
	allUsers              = "allUsers"
	allAuthenticatedUsers = "allAuthenticatedUsers"
)

// OwnerAccounts reports service accounts bound to the owner role on the project.
func OwnerAccounts(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	bindings, err := p.ProjectIAMPolicy(ctx, projectID)
	if err != nil {
		return nil, Classify(domain.ResourceProjectIAM, err)
	}

	findings := []domain.Finding{}
	for _, b := range bindings {
		if b.Role != ownerRole {
			continue
		}
		for _, member := range b.Members {
			if !strings.HasPrefix(member, serviceAccountPrefix) {
				continue
			}
			findings = append(findings, domain.Finding{
				ResourceKind: domain.ResourceProjectIAM,
				ResourceName: member,
				Attributes: map[string]string{
					"member":  member,
					"role":    b.Role,
					"project": projectID,
				},
			})
		}
	}
	return findings, nil
}

// PublicStorageBuckets reports bucket bindings granted to all users or all
// authenticated users. A bucket whose policy cannot be read is skipped.
func PublicStorageBuckets(ctx context.Context, p Provider, projectID string) ([]domain.Finding, error) {
	logger := zerolog.Ctx(ctx)

	buckets, err := collector.Collect(ctx, paged(projectID, p.Buckets))
	if err != nil {
		return nil, Classify(domain.ResourceBucket, err)
	}

	findings := []domain.Finding{}
	for _, bucket := range buckets {
		if bucket == nil {
			continue
		}
		bindings, err := p.BucketIAMPolicy(ctx, bucket.Name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, Classify(domain.ResourceBucket, ctxErr)
			}
			skipBucket(logger, bucket.Name, Classify(domain.ResourceBucket, err))
			continue
		}
		for _, b := range bindings {
			for _, member := range b.Members {
				if member != allUsers && member != allAuthenticatedUsers {
					continue
				}
				findings = append(findings, domain.Finding{
					ResourceKind: domain.ResourceBucket,
					ResourceName: bucket.Name,
					Location:     strings.ToLower(bucket.Location),
					Attributes: map[string]string{
						"member": member,
						"role":   b.Role,
					},
				})
			}
		}
	}
	return findings, nil
}

// skipBucket logs a bucket left out of the result. Access and existence
// failures are expected while enumerating; anything else is logged as an error.
func skipBucket(logger *zerolog.Logger, bucket string, err *Error) {
	event := logger.Error()
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		event = logger.Warn()
	}
	event.
		Err(err).
		Str("bucket", bucket).
		Str("kind", string(err.Kind)).
		Msg("skipping bucket policy")
}
